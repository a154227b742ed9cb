package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

func (rl *Relay) handleJoinRoom(id domain.ConnID, data []byte) {
	type joinPayload struct {
		Type        string `json:"type"`
		RoomID      string `json:"roomId"`
		DisplayName string `json:"displayName,omitempty"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(id)).Msg("bad join payload")
		return
	}
	if p.RoomID == "" {
		log.Warn().Str("module", "app.relay").Str("conn", string(id)).Msg("join without roomId")
		return
	}

	conn, ok := rl.Registry.Lookup(id)
	if !ok {
		// Disconnect raced ahead of the message.
		return
	}
	if p.DisplayName != "" {
		rl.Registry.SetName(id, p.DisplayName)
		conn.Name = p.DisplayName
	}

	room := domain.RoomID(p.RoomID)

	// Moving between rooms goes through the ordinary leave path first,
	// so membership uniqueness never depends on runtime checks.
	if conn.Room != "" && conn.Room != room {
		rl.leaveCurrentRoom(conn)
	}

	before, joined := rl.Directory.Join(room, id)
	rl.Registry.SetRoom(id, room)
	log.Info().Str("module", "app.relay").Str("conn", string(id)).Str("room", string(room)).Bool("rejoin", !joined).Msg("join")

	participants := make([]domain.Participant, 0, len(before))
	for _, m := range before {
		if mc, ok := rl.Registry.Lookup(m); ok {
			participants = append(participants, domain.Participant{ID: mc.ID, Name: mc.Name})
		}
	}
	rl.unicast(id, struct {
		Type         string               `json:"type"`
		RoomID       domain.RoomID        `json:"roomId"`
		ConnectionID domain.ConnID        `json:"connectionId"`
		Participants []domain.Participant `json:"participants"`
		RaisedHands  []domain.ConnID      `json:"raisedHands,omitempty"`
		Poll         json.RawMessage      `json:"poll,omitempty"`
	}{
		Type:         "existing-participants",
		RoomID:       room,
		ConnectionID: id,
		Participants: participants,
		RaisedHands:  rl.Directory.Hands(room),
		Poll:         rl.Directory.Poll(room),
	})

	if !joined {
		// Repeated join: the snapshot above is the whole answer.
		return
	}
	rl.broadcast(before, struct {
		Type        string             `json:"type"`
		RoomID      domain.RoomID      `json:"roomId"`
		Participant domain.Participant `json:"participant"`
	}{
		Type:        "user-joined",
		RoomID:      room,
		Participant: domain.Participant{ID: id, Name: conn.Name},
	})
}

func (rl *Relay) handleLeaveRoom(id domain.ConnID, data []byte) {
	type leavePayload struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
	}
	var p leavePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(id)).Msg("bad leave payload")
		return
	}

	conn, ok := rl.Registry.Lookup(id)
	if !ok || conn.Room == "" {
		log.Warn().Str("module", "app.relay").Str("conn", string(id)).Msg("leave while not joined")
		return
	}
	if p.RoomID != "" && domain.RoomID(p.RoomID) != conn.Room {
		log.Warn().Str("module", "app.relay").Str("conn", string(id)).Str("claimed", p.RoomID).Str("actual", string(conn.Room)).Msg("leave for a room the sender is not in")
		return
	}
	rl.leaveCurrentRoom(conn)
}

func (rl *Relay) handleSetName(id domain.ConnID, data []byte) {
	type namePayload struct {
		Type        string `json:"type"`
		DisplayName string `json:"displayName"`
	}
	var p namePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(id)).Msg("bad set-name payload")
		return
	}
	if err := domain.ValidName(p.DisplayName); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(id)).Msg("rejected display name")
		return
	}
	rl.Registry.SetName(id, p.DisplayName)
}

// OnDisconnect runs the same cleanup as an explicit leave, using the
// registry's last-known room. The transport may report closure twice;
// the second call finds nothing to unregister and stops there.
func (rl *Relay) OnDisconnect(id domain.ConnID) {
	conn, ok := rl.Registry.Unregister(id)
	if !ok {
		return
	}
	if conn.Room == "" {
		return
	}
	remaining := rl.Directory.Leave(conn.Room, id)
	log.Info().Str("module", "app.relay").Str("conn", string(id)).Str("room", string(conn.Room)).Msg("disconnect cleanup")
	rl.notifyLeft(conn, remaining)
}

// leaveCurrentRoom is the single exit path shared by leave-room, the
// room-move branch of join and nothing else; OnDisconnect mirrors it
// after the registry entry is already gone.
func (rl *Relay) leaveCurrentRoom(conn core.Connection) {
	remaining := rl.Directory.Leave(conn.Room, conn.ID)
	rl.Registry.SetRoom(conn.ID, "")
	log.Info().Str("module", "app.relay").Str("conn", string(conn.ID)).Str("room", string(conn.Room)).Msg("leave")
	rl.notifyLeft(conn, remaining)
}

func (rl *Relay) notifyLeft(conn core.Connection, remaining []domain.ConnID) {
	if len(remaining) == 0 {
		return
	}
	rl.broadcast(remaining, struct {
		Type         string        `json:"type"`
		RoomID       domain.RoomID `json:"roomId"`
		ConnectionID domain.ConnID `json:"connectionId"`
		Name         string        `json:"name,omitempty"`
	}{
		Type:         "user-left",
		RoomID:       conn.Room,
		ConnectionID: conn.ID,
		Name:         conn.Name,
	})
}
