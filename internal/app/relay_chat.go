package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// senderInRoom verifies the sender is joined to the room it claims to
// address. Room-scoped messages from outsiders are protocol errors.
func (rl *Relay) senderInRoom(id domain.ConnID, claimed string) (core.Connection, bool) {
	conn, ok := rl.Registry.Lookup(id)
	if !ok || conn.Room == "" {
		log.Warn().Str("module", "app.relay").Str("conn", string(id)).Msg("room message before join")
		return core.Connection{}, false
	}
	if claimed != "" && domain.RoomID(claimed) != conn.Room {
		log.Warn().Str("module", "app.relay").Str("conn", string(id)).Str("claimed", claimed).Str("actual", string(conn.Room)).Msg("room message for a room the sender is not in")
		return core.Connection{}, false
	}
	return conn, true
}

func (rl *Relay) handleChat(id domain.ConnID, data []byte) {
	type chatPayload struct {
		Type      string        `json:"type"`
		RoomID    string        `json:"roomId"`
		Text      string        `json:"text"`
		Private   bool          `json:"private,omitempty"`
		Recipient domain.ConnID `json:"recipient,omitempty"`
	}
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(id)).Msg("bad chat payload")
		return
	}
	conn, ok := rl.senderInRoom(id, p.RoomID)
	if !ok {
		return
	}

	if p.Private {
		if p.Recipient == "" {
			log.Warn().Str("module", "app.relay").Str("conn", string(id)).Msg("private message without recipient")
			return
		}
		out := struct {
			Type string        `json:"type"`
			From domain.ConnID `json:"from"`
			Name string        `json:"name"`
			Text string        `json:"text"`
		}{
			Type: "private-message",
			From: id,
			Name: conn.Name,
			Text: p.Text,
		}
		// The sender has no local copy of a private message until the
		// server echoes it back alongside the recipient's copy.
		rl.unicast(p.Recipient, out)
		rl.unicast(id, out)
		return
	}

	// Public chat skips the sender: the client already rendered its own
	// message locally.
	rl.broadcast(rl.Directory.MembersExcept(conn.Room, id), struct {
		Type   string        `json:"type"`
		RoomID domain.RoomID `json:"roomId"`
		From   domain.ConnID `json:"from"`
		Name   string        `json:"name"`
		Text   string        `json:"text"`
	}{
		Type:   "chat-message",
		RoomID: conn.Room,
		From:   id,
		Name:   conn.Name,
		Text:   p.Text,
	})
}

func (rl *Relay) handleEmoji(id domain.ConnID, data []byte) {
	type emojiPayload struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
		Emoji  string `json:"emoji"`
	}
	var p emojiPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(id)).Msg("bad emoji payload")
		return
	}
	conn, ok := rl.senderInRoom(id, p.RoomID)
	if !ok {
		return
	}
	rl.broadcast(rl.Directory.MembersExcept(conn.Room, id), struct {
		Type   string        `json:"type"`
		RoomID domain.RoomID `json:"roomId"`
		From   domain.ConnID `json:"from"`
		Emoji  string        `json:"emoji"`
	}{
		Type:   "emoji",
		RoomID: conn.Room,
		From:   id,
		Emoji:  p.Emoji,
	})
}

func (rl *Relay) handleRaiseHand(id domain.ConnID, data []byte) {
	type handPayload struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
		Raised bool   `json:"raised"`
	}
	var p handPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(id)).Msg("bad raise-hand payload")
		return
	}
	conn, ok := rl.senderInRoom(id, p.RoomID)
	if !ok {
		return
	}
	rl.Directory.SetHand(conn.Room, id, p.Raised)
	rl.broadcast(rl.Directory.MembersExcept(conn.Room, id), struct {
		Type         string        `json:"type"`
		RoomID       domain.RoomID `json:"roomId"`
		ConnectionID domain.ConnID `json:"connectionId"`
		Raised       bool          `json:"raised"`
	}{
		Type:         "hand-raised",
		RoomID:       conn.Room,
		ConnectionID: id,
		Raised:       p.Raised,
	})
}

func (rl *Relay) handleCreatePoll(id domain.ConnID, data []byte) {
	type pollPayload struct {
		Type   string          `json:"type"`
		RoomID string          `json:"roomId"`
		Poll   json.RawMessage `json:"poll"`
	}
	var p pollPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(id)).Msg("bad create-poll payload")
		return
	}
	conn, ok := rl.senderInRoom(id, p.RoomID)
	if !ok {
		return
	}
	if len(p.Poll) == 0 {
		log.Warn().Str("module", "app.relay").Str("conn", string(id)).Msg("create-poll without poll")
		return
	}
	// The snapshot is kept verbatim so late joiners see the live poll.
	rl.Directory.SetPoll(conn.Room, p.Poll)
	rl.broadcast(rl.Directory.MembersExcept(conn.Room, id), struct {
		Type   string          `json:"type"`
		RoomID domain.RoomID   `json:"roomId"`
		From   domain.ConnID   `json:"from"`
		Poll   json.RawMessage `json:"poll"`
	}{
		Type:   "poll-created",
		RoomID: conn.Room,
		From:   id,
		Poll:   p.Poll,
	})
}

func (rl *Relay) handleVotePoll(id domain.ConnID, data []byte) {
	type votePayload struct {
		Type        string `json:"type"`
		RoomID      string `json:"roomId"`
		VoteIndices []int  `json:"voteIndices"`
	}
	var p votePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(id)).Msg("bad vote-poll payload")
		return
	}
	conn, ok := rl.senderInRoom(id, p.RoomID)
	if !ok {
		return
	}
	rl.broadcast(rl.Directory.MembersExcept(conn.Room, id), struct {
		Type        string        `json:"type"`
		RoomID      domain.RoomID `json:"roomId"`
		From        domain.ConnID `json:"from"`
		VoteIndices []int         `json:"voteIndices"`
	}{
		Type:        "poll-vote",
		RoomID:      conn.Room,
		From:        id,
		VoteIndices: p.VoteIndices,
	})
}

func (rl *Relay) handleScreenShare(id domain.ConnID, data []byte) {
	type sharePayload struct {
		Type    string          `json:"type"`
		RoomID  string          `json:"roomId"`
		Payload json.RawMessage `json:"payload"`
	}
	var p sharePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(id)).Msg("bad screen-share payload")
		return
	}
	conn, ok := rl.senderInRoom(id, p.RoomID)
	if !ok {
		return
	}
	rl.broadcast(rl.Directory.MembersExcept(conn.Room, id), struct {
		Type    string          `json:"type"`
		RoomID  domain.RoomID   `json:"roomId"`
		From    domain.ConnID   `json:"from"`
		Payload json.RawMessage `json:"payload"`
	}{
		Type:    "screen-share",
		RoomID:  conn.Room,
		From:    id,
		Payload: p.Payload,
	})
}
