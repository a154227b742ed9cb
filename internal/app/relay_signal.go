package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
)

// handleSignal builds the unicast handler for one handshake step. The
// payload is relayed verbatim; whatever SDP or candidate shape the
// clients use is their business.
func (rl *Relay) handleSignal(kind string) func(domain.ConnID, []byte) {
	return func(id domain.ConnID, data []byte) {
		type signalPayload struct {
			Type    string          `json:"type"`
			Target  domain.ConnID   `json:"targetConnectionId"`
			Payload json.RawMessage `json:"payload"`
		}
		var p signalPayload
		if err := json.Unmarshal(data, &p); err != nil {
			log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(id)).Str("kind", kind).Msg("bad signal payload")
			return
		}
		if p.Target == "" {
			log.Warn().Str("module", "app.relay").Str("conn", string(id)).Str("kind", kind).Msg("signal without target")
			return
		}
		// A missing target is not an error: the peer may be gone and
		// the client-side handshake timeout covers it.
		rl.unicast(p.Target, struct {
			Type    string          `json:"type"`
			From    domain.ConnID   `json:"from"`
			Payload json.RawMessage `json:"payload"`
		}{
			Type:    kind,
			From:    id,
			Payload: p.Payload,
		})
	}
}

// handleModeration builds the unicast handler for mute-user and
// remove-user. The sender is trusted; enforcement happens client-side.
func (rl *Relay) handleModeration(kind string) func(domain.ConnID, []byte) {
	return func(id domain.ConnID, data []byte) {
		type modPayload struct {
			Type   string        `json:"type"`
			RoomID string        `json:"roomId"`
			Target domain.ConnID `json:"targetConnectionId"`
		}
		var p modPayload
		if err := json.Unmarshal(data, &p); err != nil {
			log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(id)).Str("kind", kind).Msg("bad moderation payload")
			return
		}
		if p.Target == "" {
			log.Warn().Str("module", "app.relay").Str("conn", string(id)).Str("kind", kind).Msg("moderation without target")
			return
		}
		rl.unicast(p.Target, struct {
			Type   string        `json:"type"`
			RoomID string        `json:"roomId"`
			By     domain.ConnID `json:"by"`
		}{
			Type:   kind,
			RoomID: p.RoomID,
			By:     id,
		})
	}
}
