package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
)

// Connection is the registry's view of one live transport session.
// Room is empty while the connection has not joined anywhere.
type Connection struct {
	ID     domain.ConnID
	Name   string
	Room   domain.RoomID
	Signal SignalConnection
}

// Registry maps live connection ids to their identity and current room.
// It never touches the Directory; the relay sequences the two.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]*Connection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[domain.ConnID]*Connection)}
}

// Register creates an entry with no room and no name.
// A duplicate id means the transport layer handed out the same id twice;
// the old entry is overwritten and the stale transport closed.
func (r *Registry) Register(id domain.ConnID, sig SignalConnection) Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.conns[id]; ok {
		log.Warn().Str("module", "core.registry").Str("conn", string(id)).Msg("duplicate connection id, overwriting")
		if old.Signal != nil {
			old.Signal.Close()
		}
	}
	c := &Connection{ID: id, Signal: sig}
	r.conns[id] = c
	log.Info().Str("module", "core.registry").Str("conn", string(id)).Msg("registered connection")
	return *c
}

// SetName updates the display name. Unknown ids are ignored: the
// disconnect may have raced ahead of the message. Overlong names are
// clamped rather than rejected.
func (r *Registry) SetName(id domain.ConnID, name string) {
	if name == "" {
		return
	}
	if len(name) > domain.MaxDisplayNameLen {
		name = name[:domain.MaxDisplayNameLen]
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conns[id]; ok {
		c.Name = name
	}
}

// SetRoom updates the connection's current room pointer. An empty room
// id marks the connection as unjoined.
func (r *Registry) SetRoom(id domain.ConnID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return false
	}
	c.Room = room
	return true
}

// Lookup returns a snapshot of the entry. The copy keeps readers safe
// from concurrent SetName/SetRoom calls.
func (r *Registry) Lookup(id domain.ConnID) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	if !ok {
		return Connection{}, false
	}
	return *c, true
}

// Unregister removes and returns the entry, so the caller can learn the
// connection's last-known room before cleanup.
func (r *Registry) Unregister(id domain.ConnID) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return Connection{}, false
	}
	delete(r.conns, id)
	log.Info().Str("module", "core.registry").Str("conn", string(id)).Msg("unregistered connection")
	return *c, true
}
