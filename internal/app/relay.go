package app

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// Relay consumes inbound frames, decides the destination set and
// dispatches outbound frames. It never inspects handshake payloads
// beyond routing metadata. Handlers live in a fixed table keyed by
// message type, so every state transition has a single call site.
type Relay struct {
	Registry  *core.Registry
	Directory *core.Directory
	Policy    Policy

	handlers map[string]func(domain.ConnID, []byte)
}

func NewRelay(reg *core.Registry, dir *core.Directory, policy Policy) *Relay {
	rl := &Relay{
		Registry:  reg,
		Directory: dir,
		Policy:    policy,
	}
	rl.handlers = map[string]func(domain.ConnID, []byte){
		"join-room":          rl.handleJoinRoom,
		"leave-room":         rl.handleLeaveRoom,
		"set-name":           rl.handleSetName,
		"signal-offer":       rl.handleSignal("signal-offer"),
		"signal-answer":      rl.handleSignal("signal-answer"),
		"ice-candidate":      rl.handleSignal("ice-candidate"),
		"send-message":       rl.handleChat,
		"send-emoji":         rl.handleEmoji,
		"raise-hand":         rl.handleRaiseHand,
		"create-poll":        rl.handleCreatePoll,
		"vote-poll":          rl.handleVotePoll,
		"mute-user":          rl.handleModeration("mute-user"),
		"remove-user":        rl.handleModeration("remove-user"),
		"start-screen-share": rl.handleScreenShare,
		"ping":               rl.handlePing,
	}
	return rl
}

// OnConnect registers a fresh transport with the registry.
func (rl *Relay) OnConnect(id domain.ConnID, sig core.SignalConnection) {
	rl.Registry.Register(id, sig)
}

// OnMessage routes one inbound frame through the dispatch table.
// Malformed frames are logged and dropped, never fatal.
func (rl *Relay) OnMessage(id domain.ConnID, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(id)).Msg("bad json frame")
		return
	}
	h, ok := rl.handlers[env.Type]
	if !ok {
		log.Warn().Str("module", "app.relay").Str("conn", string(id)).Str("type", env.Type).Msg("unknown message type")
		return
	}
	h(id, data)
}

func (rl *Relay) handlePing(id domain.ConnID, _ []byte) {
	rl.unicast(id, struct {
		Type string `json:"type"`
	}{Type: "pong"})
}

// unicast sends to one connection. A missing target is the expected
// steady state when a peer has already left, so it is a silent no-op.
func (rl *Relay) unicast(target domain.ConnID, v any) bool {
	conn, ok := rl.Registry.Lookup(target)
	if !ok {
		return false
	}
	rl.deliver(conn, v)
	return true
}

// broadcast fans out to every listed member. Delivery is best-effort
// per target; a slow consumer never delays the rest.
func (rl *Relay) broadcast(targets []domain.ConnID, v any) {
	for _, id := range targets {
		conn, ok := rl.Registry.Lookup(id)
		if !ok {
			continue
		}
		rl.deliver(conn, v)
	}
}

func (rl *Relay) deliver(conn core.Connection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("marshal outbound")
		return
	}
	if conn.Signal == nil {
		return
	}
	if err := conn.Signal.TrySend(core.Frame(b)); err != nil {
		if !errors.Is(err, core.ErrBackpressure) {
			// The connection is already closed; its disconnect cleanup
			// is in flight and there is nothing to decide.
			return
		}
		log.Warn().Str("module", "app.relay").Str("conn", string(conn.ID)).Msg("outbound queue full, consulting policy")
		if rl.Policy != nil && rl.Policy.OnBackpressure(conn.Room, conn.ID) == CloseConnection {
			conn.Signal.Close()
		}
	}
}
