package core

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
)

// roomState is the membership set plus the ephemeral sub-state the relay
// re-sends to late joiners. It dies with the room.
type roomState struct {
	members map[domain.ConnID]struct{}
	hands   map[domain.ConnID]struct{}
	poll    json.RawMessage
}

// Directory maps room ids to member sets. Rooms are created on first
// join and deleted the moment the member set becomes empty, so a room
// exists iff it has members.
type Directory struct {
	mu    sync.Mutex
	rooms map[domain.RoomID]*roomState
}

func NewDirectory() *Directory {
	return &Directory{rooms: make(map[domain.RoomID]*roomState)}
}

// Join adds the connection to the room, creating the room if absent.
// It returns the member list as it was before the add, so the relay can
// announce the joiner to exactly the pre-existing members. A repeated
// join is a no-op: joined is false and the returned list is the current
// members without the joiner.
func (d *Directory) Join(room domain.RoomID, id domain.ConnID) (before []domain.ConnID, joined bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.rooms[room]
	if !ok {
		st = &roomState{
			members: make(map[domain.ConnID]struct{}),
			hands:   make(map[domain.ConnID]struct{}),
		}
		d.rooms[room] = st
		log.Info().Str("module", "core.directory").Str("room", string(room)).Msg("room created")
	}
	before = make([]domain.ConnID, 0, len(st.members))
	for m := range st.members {
		if m != id {
			before = append(before, m)
		}
	}
	if _, dup := st.members[id]; dup {
		return before, false
	}
	st.members[id] = struct{}{}
	return before, true
}

// Leave removes the connection and returns the remaining members. The
// room is deleted, sub-state included, when the last member goes. An
// unknown room or member is a no-op returning nil.
func (d *Directory) Leave(room domain.RoomID, id domain.ConnID) []domain.ConnID {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.rooms[room]
	if !ok {
		return nil
	}
	if _, member := st.members[id]; !member {
		return nil
	}
	delete(st.members, id)
	delete(st.hands, id)
	if len(st.members) == 0 {
		delete(d.rooms, room)
		log.Info().Str("module", "core.directory").Str("room", string(room)).Msg("room deleted")
		return nil
	}
	remaining := make([]domain.ConnID, 0, len(st.members))
	for m := range st.members {
		remaining = append(remaining, m)
	}
	return remaining
}

// MembersExcept is the broadcast-to-others target set.
func (d *Directory) MembersExcept(room domain.RoomID, id domain.ConnID) []domain.ConnID {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.rooms[room]
	if !ok {
		return nil
	}
	out := make([]domain.ConnID, 0, len(st.members))
	for m := range st.members {
		if m != id {
			out = append(out, m)
		}
	}
	return out
}

func (d *Directory) Exists(room domain.RoomID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.rooms[room]
	return ok
}

func (d *Directory) MemberCount(room domain.RoomID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.rooms[room]; ok {
		return len(st.members)
	}
	return 0
}

// SetHand records the raised-hand flag for a member. Ignored when the
// room is gone or the connection is not a member.
func (d *Directory) SetHand(room domain.RoomID, id domain.ConnID, raised bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.rooms[room]
	if !ok {
		return false
	}
	if _, member := st.members[id]; !member {
		return false
	}
	if raised {
		st.hands[id] = struct{}{}
	} else {
		delete(st.hands, id)
	}
	return true
}

// Hands returns the members with a raised hand.
func (d *Directory) Hands(room domain.RoomID) []domain.ConnID {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.rooms[room]
	if !ok {
		return nil
	}
	out := make([]domain.ConnID, 0, len(st.hands))
	for m := range st.hands {
		out = append(out, m)
	}
	return out
}

// SetPoll stores the latest poll snapshot verbatim for late joiners.
func (d *Directory) SetPoll(room domain.RoomID, poll json.RawMessage) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.rooms[room]
	if !ok {
		return false
	}
	st.poll = poll
	return true
}

func (d *Directory) Poll(room domain.RoomID) json.RawMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.rooms[room]; ok {
		return st.poll
	}
	return nil
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}

// List snapshots all live rooms for the convenience REST surface.
func (d *Directory) List() []RoomInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]RoomInfo, 0, len(d.rooms))
	for id, st := range d.rooms {
		out = append(out, RoomInfo{ID: id, MemberCount: len(st.members)})
	}
	return out
}
