package signal_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	router "github.com/dkeye/Meet/internal/adapters/http"
	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

func newSignalServer(t *testing.T) (*httptest.Server, *app.Relay) {
	t.Helper()
	cfg := &config.Config{
		Mode:         "release",
		Secret:       "test-secret",
		StaticPath:   t.TempDir(),
		ReadLimit:    65536,
		PingPeriod:   54 * time.Second,
		SendBuffer:   32,
		RateLimit:    1000,
		RateInterval: 10 * time.Second,
	}
	relay := app.NewRelay(core.NewRegistry(), core.NewDirectory(), app.DropPolicy{})
	srv := httptest.NewServer(router.SetupRouter(context.Background(), cfg, relay))
	t.Cleanup(srv.Close)
	return srv, relay
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal"
	hdr := http.Header{"Cookie": []string{"ct=" + token}}
	c, _, err := websocket.DefaultDialer.Dial(url, hdr)
	if err != nil {
		t.Fatalf("dial as %s: %v", token, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func send(t *testing.T, c *websocket.Conn, v any) {
	t.Helper()
	if err := c.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, c *websocket.Conn) map[string]any {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	var m map[string]any
	if err := c.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	return m
}

// joinRoom joins and returns the server-assigned connection id from the
// snapshot, plus the snapshot itself.
func joinRoom(t *testing.T, c *websocket.Conn, room, name string) (string, map[string]any) {
	t.Helper()
	send(t, c, map[string]any{"type": "join-room", "roomId": room, "displayName": name})
	snap := recv(t, c)
	if snap["type"] != "existing-participants" {
		t.Fatalf("expected a snapshot after join, got %v", snap)
	}
	id, _ := snap["connectionId"].(string)
	if id == "" {
		t.Fatalf("snapshot must carry the server-assigned connection id, got %v", snap)
	}
	return id, snap
}

func TestSignalingSessionOverWebSocket(t *testing.T) {
	srv, _ := newSignalServer(t)

	a := dial(t, srv, "A")
	aID, snap := joinRoom(t, a, "r1", "alice")
	if parts := snap["participants"].([]any); len(parts) != 0 {
		t.Fatalf("A joined an empty room, got participants %v", parts)
	}

	b := dial(t, srv, "B")
	bID, snap := joinRoom(t, b, "r1", "bob")
	parts := snap["participants"].([]any)
	if len(parts) != 1 || parts[0].(map[string]any)["id"] != aID {
		t.Fatalf("B expected existing participants [%s], got %v", aID, parts)
	}

	joined := recv(t, a)
	if joined["type"] != "user-joined" || joined["participant"].(map[string]any)["id"] != bID {
		t.Fatalf("A expected user-joined(%s), got %v", bID, joined)
	}

	send(t, b, map[string]any{
		"type":               "signal-offer",
		"targetConnectionId": aID,
		"payload":            map[string]any{"sdp": "v=0 fake"},
	})
	offer := recv(t, a)
	if offer["type"] != "signal-offer" || offer["from"] != bID {
		t.Fatalf("A expected a relayed offer from %s, got %v", bID, offer)
	}
	if offer["payload"].(map[string]any)["sdp"] != "v=0 fake" {
		t.Fatalf("payload must survive the relay verbatim, got %v", offer["payload"])
	}

	// Abrupt close of B must surface as user-left at A.
	_ = b.Close()
	left := recv(t, a)
	if left["type"] != "user-left" || left["connectionId"] != bID {
		t.Fatalf("A expected user-left(%s), got %v", bID, left)
	}
}

func TestDisconnectReclaimsRoomState(t *testing.T) {
	srv, relay := newSignalServer(t)

	a := dial(t, srv, "A")
	aID, _ := joinRoom(t, a, "r9", "alice")

	_ = a.Close()

	deadline := time.Now().Add(3 * time.Second)
	for relay.Directory.Exists("r9") {
		if time.Now().After(deadline) {
			t.Fatalf("room must be garbage collected after its only member disconnects")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, ok := relay.Registry.Lookup(domain.ConnID(aID)); ok {
		t.Fatalf("registry entry must be gone after disconnect")
	}
}

// Two live transports from the same browser share the cookie token but
// must get distinct connection ids, and tearing one down must not
// unregister the other.
func TestConcurrentTransportsWithSharedCookie(t *testing.T) {
	srv, relay := newSignalServer(t)

	tab1 := dial(t, srv, "A")
	id1, _ := joinRoom(t, tab1, "r1", "alice")

	tab2 := dial(t, srv, "A")
	id2, snap := joinRoom(t, tab2, "r1", "alice")
	if id1 == id2 {
		t.Fatalf("each transport must get its own connection id, both got %s", id1)
	}
	parts := snap["participants"].([]any)
	if len(parts) != 1 || parts[0].(map[string]any)["id"] != id1 {
		t.Fatalf("tab2 expected existing participants [%s], got %v", id1, parts)
	}
	if joined := recv(t, tab1); joined["type"] != "user-joined" {
		t.Fatalf("tab1 expected user-joined(tab2), got %v", joined)
	}

	// Closing the first tab must clean up only its own entry.
	_ = tab1.Close()
	if left := recv(t, tab2); left["type"] != "user-left" || left["connectionId"] != id1 {
		t.Fatalf("tab2 expected user-left(%s), got %v", id1, left)
	}

	if _, ok := relay.Registry.Lookup(domain.ConnID(id2)); !ok {
		t.Fatalf("tab1's disconnect cleanup removed tab2's live registry entry")
	}
	send(t, tab2, map[string]any{"type": "ping"})
	if pong := recv(t, tab2); pong["type"] != "pong" {
		t.Fatalf("tab2 must stay fully functional after tab1 closes, got %v", pong)
	}
}
