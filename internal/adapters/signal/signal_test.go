package signal

import (
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/core"
)

func TestWsSignalConn_TrySendNeverBlocks(t *testing.T) {
	c := &WsSignalConn{send: make(chan core.Frame, 1)}

	if err := c.TrySend(core.Frame("one")); err != nil {
		t.Fatalf("first send must fit the buffer: %v", err)
	}
	if err := c.TrySend(core.Frame("two")); !errors.Is(err, core.ErrBackpressure) {
		t.Fatalf("full queue must report backpressure, got %v", err)
	}
}

func TestMessageRateLimiter(t *testing.T) {
	rl := NewMessageRateLimiter(2, time.Hour)

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("first two frames must pass")
	}
	if rl.Allow("a") {
		t.Fatalf("third frame within the window must be rejected")
	}
	if !rl.Allow("b") {
		t.Fatalf("limits are per connection")
	}

	rl.Forget("a")
	if !rl.Allow("a") {
		t.Fatalf("Forget must reset the window")
	}
}
