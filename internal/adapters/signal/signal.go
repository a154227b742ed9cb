package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// Controller owns the WebSocket side of the relay: upgrades, pumps and
// the per-connection flood limiter. All protocol decisions live in
// app.Relay; this layer only moves frames.
type Controller struct {
	Relay   *app.Relay
	Cfg     *config.Config
	limiter *MessageRateLimiter
}

func NewController(relay *app.Relay, cfg *config.Config) *Controller {
	return &Controller{
		Relay:   relay,
		Cfg:     cfg,
		limiter: NewMessageRateLimiter(cfg.RateLimit, cfg.RateInterval),
	}
}

// WsSignalConn adapts a gorilla connection to core.SignalConnection.
// TrySend never blocks: a full send queue is reported as backpressure
// and the relay's policy decides what to do about it.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and hands the connection to the
// relay. Every upgrade gets a fresh connection id: the cookie token is
// per browser, and one browser may hold several live transports (two
// tabs, or a reconnect racing the old socket's teardown).
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	id := domain.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("conn", string(id)).Str("client", c.GetString("client_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	buf := ctl.Cfg.SendBuffer
	if buf <= 0 {
		buf = 32
	}
	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, buf),
	}

	ctl.Relay.OnConnect(id, conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, id, conn)
}
