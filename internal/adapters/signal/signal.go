package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/roulette/internal/core"
	"github.com/dkeye/roulette/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Engine receives connection lifecycle and decoded client events.
type Engine interface {
	Attach(conn core.SignalConnection)
	Detach(conn core.SignalConnection)
	Submit(conn core.SignalConnection, in protocol.Inbound)
}

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

func (o *Options) setDefaults() {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32768
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 5 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
}

type SignalWSController struct {
	Engine Engine
	opts   Options
}

func NewSignalWSController(engine Engine, opts Options) *SignalWSController {
	opts.setDefaults()
	return &SignalWSController{Engine: engine, opts: opts}
}

// WsSignalConn is one websocket attachment. Frames are queued on send and
// written by writePump; TrySend never blocks.
type WsSignalConn struct {
	id   core.ConnID
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) ID() core.ConnID { return c.id }

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrClosed
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

func (c *WsSignalConn) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	client := c.GetString("client_token")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		id:   core.NewConnID(),
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}
	log.Info().Str("module", "signal").Str("conn", string(conn.id)).Str("client", client).Msg("new WS connection")

	ctl.Engine.Attach(conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, conn)
	}()
}
