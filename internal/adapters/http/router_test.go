package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/core"
)

func newTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, *app.Relay) {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{Mode: "release", Secret: "test-secret"}
	}
	cfg.StaticPath = t.TempDir()
	relay := app.NewRelay(core.NewRegistry(), core.NewDirectory(), app.DropPolicy{})
	srv := httptest.NewServer(SetupRouter(context.Background(), cfg, relay))
	t.Cleanup(srv.Close)
	return srv, relay
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("decode %s response %q: %v", url, body, err)
		}
	}
	return resp.StatusCode
}

func TestCreateRoomMintsDistinctIDs(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	mint := func() string {
		resp, err := http.Post(srv.URL+"/api/rooms", "application/json", nil)
		if err != nil {
			t.Fatalf("POST /api/rooms: %v", err)
		}
		defer resp.Body.Close()
		var body struct {
			RoomID string `json:"roomId"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.RoomID == "" {
			t.Fatalf("expected a non-empty room id")
		}
		return body.RoomID
	}

	if mint() == mint() {
		t.Fatalf("expected distinct room ids per request")
	}
}

func TestRoomInfoReflectsDirectory(t *testing.T) {
	srv, relay := newTestServer(t, nil)

	if code := getJSON(t, srv.URL+"/api/rooms/r1", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for absent room, got %d", code)
	}

	relay.Directory.Join("r1", "a")
	relay.Directory.Join("r1", "b")

	var info struct {
		ID          string `json:"id"`
		MemberCount int    `json:"member_count"`
	}
	if code := getJSON(t, srv.URL+"/api/rooms/r1", &info); code != http.StatusOK {
		t.Fatalf("expected 200 for live room, got %d", code)
	}
	if info.MemberCount != 2 {
		t.Fatalf("expected member_count 2, got %d", info.MemberCount)
	}

	var list struct {
		Rooms []struct {
			ID          string `json:"id"`
			MemberCount int    `json:"member_count"`
		} `json:"rooms"`
	}
	getJSON(t, srv.URL+"/api/rooms", &list)
	if len(list.Rooms) != 1 || list.Rooms[0].ID != "r1" {
		t.Fatalf("expected room listing [r1], got %v", list.Rooms)
	}
}

func TestICEEndpoint(t *testing.T) {
	cfg := &config.Config{
		Mode:           "release",
		Secret:         "test-secret",
		StunServers:    []string{"stun:stun.example.com:3478"},
		TurnURL:        "turn:turn.example.com:3478",
		TurnUsername:   "u",
		TurnCredential: "p",
	}
	srv, _ := newTestServer(t, cfg)

	var body struct {
		ICEServers []struct {
			URLs     []string `json:"urls"`
			Username string   `json:"username"`
		} `json:"iceServers"`
	}
	if code := getJSON(t, srv.URL+"/api/ice", &body); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(body.ICEServers) != 2 {
		t.Fatalf("expected stun + turn entries, got %v", body.ICEServers)
	}
	if body.ICEServers[0].URLs[0] != "stun:stun.example.com:3478" {
		t.Fatalf("unexpected stun entry: %v", body.ICEServers[0])
	}
	if body.ICEServers[1].Username != "u" {
		t.Fatalf("expected turn credentials passed through, got %v", body.ICEServers[1])
	}
}
