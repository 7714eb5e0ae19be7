package orch

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/roulette/internal/app"
	"github.com/dkeye/roulette/internal/core"
	"github.com/dkeye/roulette/internal/domain"
	"github.com/dkeye/roulette/internal/protocol"
	"github.com/dkeye/roulette/internal/store"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// Config tunes the orchestrator. Zero values fall back to defaults.
type Config struct {
	DefaultMode       domain.Mode
	MaxBatch          int
	EventBuffer       int
	MaxMessageLen     int
	RateLimitMessages int
	RateLimitInterval time.Duration
	StoreTimeout      time.Duration
	Policy            app.Policy
	QueueOptions      []app.QueueOption
}

func (c *Config) setDefaults() {
	if !c.DefaultMode.Valid() {
		c.DefaultMode = domain.ModeVideo
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = 256
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 1024
	}
	if c.MaxMessageLen <= 0 {
		c.MaxMessageLen = 2000
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 5 * time.Second
	}
	if c.Policy == nil {
		c.Policy = app.SimplePolicy{}
	}
}

// Orchestrator owns the registry, the queue and the rooms. Every mutation of
// that state happens on the goroutine running Run; adapters only post events.
type Orchestrator struct {
	cfg      Config
	registry *app.Registry
	queue    *app.Queue
	rooms    *app.RoomManager
	limiter  *app.MessageRateLimiter
	store    store.Store

	conns    map[core.ConnID]core.SignalConnection
	events   chan event
	stopped  chan struct{}
	pending  bool
	inflight conc.WaitGroup
	chains   map[domain.SessionID]chan struct{} // last message store per sender
	baseCtx  context.Context
}

func New(st store.Store, cfg Config) *Orchestrator {
	cfg.setDefaults()
	reg := app.NewRegistry()
	return &Orchestrator{
		cfg:      cfg,
		registry: reg,
		queue:    app.NewQueue(cfg.QueueOptions...),
		rooms:    app.NewRoomManager(reg),
		limiter:  app.NewMessageRateLimiter(cfg.RateLimitMessages, cfg.RateLimitInterval),
		store:    st,
		conns:    make(map[core.ConnID]core.SignalConnection),
		events:   make(chan event, cfg.EventBuffer),
		stopped:  make(chan struct{}),
		chains:   make(map[domain.SessionID]chan struct{}),
		baseCtx:  context.Background(),
	}
}

type eventKind int

const (
	evAttach eventKind = iota
	evDetach
	evInbound
	evMessageStored
	evReportStored
	evStats
)

type event struct {
	kind  eventKind
	conn  core.SignalConnection
	in    protocol.Inbound
	done  *completion
	stats chan Stats
}

// completion carries the result of a persistence call back onto the loop.
type completion struct {
	sid    domain.SessionID
	connID core.ConnID
	room   domain.RoomID
	text   string
	at     time.Time
	err    error
	chain  chan struct{}
}

var ErrStopped = errors.New("orchestrator stopped")

// Attach starts tracking conn so it receives presence updates.
func (o *Orchestrator) Attach(conn core.SignalConnection) {
	o.post(event{kind: evAttach, conn: conn})
}

// Detach is the connection-closed event.
func (o *Orchestrator) Detach(conn core.SignalConnection) {
	o.post(event{kind: evDetach, conn: conn})
}

// Submit hands one decoded client event to the loop. Events from the same
// connection are handled in submission order.
func (o *Orchestrator) Submit(conn core.SignalConnection, in protocol.Inbound) {
	o.post(event{kind: evInbound, conn: conn, in: in})
}

func (o *Orchestrator) post(ev event) {
	select {
	case o.events <- ev:
	case <-o.stopped:
		log.Debug().Str("module", "orch").Int("kind", int(ev.kind)).Msg("event dropped after stop")
	}
}

// Run processes events until ctx is done. After each event it drains up to
// MaxBatch buffered events, then runs at most one pairing pass, so a burst of
// joins is matched together.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.baseCtx = ctx
	log.Info().Str("module", "orch").Int("max_batch", o.cfg.MaxBatch).Msg("loop started")
	defer o.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-o.events:
			o.handle(ev)
		}
		o.drain(o.cfg.MaxBatch)
		o.flush()
	}
}

func (o *Orchestrator) drain(limit int) {
	for range limit {
		select {
		case ev := <-o.events:
			o.handle(ev)
		default:
			return
		}
	}
}

// flush runs the pairing pass if one was requested since the last turn.
func (o *Orchestrator) flush() {
	if !o.pending {
		return
	}
	o.pending = false
	o.pairingPass()
}

func (o *Orchestrator) shutdown() {
	close(o.stopped)
	for _, c := range o.conns {
		c.Close()
	}
	o.inflight.Wait()
	log.Info().Str("module", "orch").Int("sessions", o.registry.Count()).Int("rooms", o.rooms.Count()).Msg("loop stopped")
}

func (o *Orchestrator) handle(ev event) {
	switch ev.kind {
	case evAttach:
		o.conns[ev.conn.ID()] = ev.conn
		log.Debug().Str("module", "orch").Str("conn", string(ev.conn.ID())).Msg("attached")
	case evDetach:
		delete(o.conns, ev.conn.ID())
		o.unregister(ev.conn, "disconnect")
		log.Debug().Str("module", "orch").Str("conn", string(ev.conn.ID())).Msg("detached")
	case evInbound:
		o.dispatch(ev.conn, ev.in)
	case evMessageStored:
		o.onMessageStored(ev.done)
	case evReportStored:
		o.onReportStored(ev.done)
	case evStats:
		ev.stats <- o.snapshot()
	}
}

func (o *Orchestrator) dispatch(conn core.SignalConnection, in protocol.Inbound) {
	switch m := in.(type) {
	case *protocol.Register:
		o.register(conn, m)
	case *protocol.JoinQueue:
		o.joinQueue(conn, m)
	case *protocol.LeaveQueue:
		o.leaveQueue(conn)
	case *protocol.Next:
		o.next(conn)
	case *protocol.EndChat:
		o.endChat(conn)
	case *protocol.Message:
		o.message(conn, m)
	case *protocol.Typing:
		o.typing(conn, m)
	case *protocol.Offer:
		o.relay(conn, m.To, protocol.RelayOffer, m.SDP)
	case *protocol.Answer:
		o.relay(conn, m.To, protocol.RelayAnswer, m.SDP)
	case *protocol.ICECandidate:
		o.relayICE(conn, m)
	case *protocol.Report:
		o.report(conn, m)
	case *protocol.Ping:
		o.reply(conn, protocol.Pong())
	default:
		log.Warn().Str("module", "orch").Str("type", string(in.Type())).Msg("unhandled event")
	}
}

// Stats is a point-in-time view of the engine.
type Stats struct {
	Connections int            `json:"connections"`
	Online      int            `json:"online"`
	Idle        int            `json:"idle"`
	Queued      map[string]int `json:"queued"`
	Rooms       map[string]int `json:"rooms"`
}

// Stats asks the loop for a snapshot.
func (o *Orchestrator) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case o.events <- event{kind: evStats, stats: reply}:
	case <-o.stopped:
		return Stats{}, ErrStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-o.stopped:
		return Stats{}, ErrStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

func (o *Orchestrator) snapshot() Stats {
	s := Stats{
		Connections: len(o.conns),
		Online:      o.registry.Count(),
		Idle:        o.registry.CountByStatus()[domain.StatusIdle],
		Queued:      make(map[string]int),
		Rooms:       make(map[string]int),
	}
	for m, n := range o.queue.CountByMode(o.modeOf) {
		s.Queued[string(m)] = n
	}
	for m, n := range o.rooms.CountByMode() {
		s.Rooms[string(m)] = n
	}
	return s
}

func (o *Orchestrator) modeOf(sid domain.SessionID) (domain.Mode, bool) {
	e, ok := o.registry.Lookup(sid)
	if !ok {
		return "", false
	}
	return e.Session.Mode, true
}

// caller resolves the session that conn currently represents.
func (o *Orchestrator) caller(conn core.SignalConnection) (*app.Entry, bool) {
	return o.registry.ByConn(conn.ID())
}

// sendTo delivers v to the live connection of sid, if any.
func (o *Orchestrator) sendTo(sid domain.SessionID, v protocol.Outbound) {
	e, ok := o.registry.Lookup(sid)
	if !ok || !e.Live() {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("type", string(v.Type())).Msg("no live connection, dropped")
		return
	}
	o.deliver(sid, e.Conn, v)
}

// reply answers the calling connection directly.
func (o *Orchestrator) reply(conn core.SignalConnection, v protocol.Outbound) {
	var sid domain.SessionID
	if e, ok := o.caller(conn); ok {
		sid = e.Session.ID
	}
	o.deliver(sid, conn, v)
}

func (o *Orchestrator) fail(conn core.SignalConnection, code protocol.Code, msg string) {
	o.reply(conn, protocol.Error(code, msg))
}

func (o *Orchestrator) deliver(sid domain.SessionID, conn core.SignalConnection, v protocol.Outbound) {
	frame, err := protocol.Encode(v)
	if err != nil {
		log.Error().Str("module", "orch").Err(err).Msg("encode")
		return
	}
	o.write(sid, conn, frame)
}

func (o *Orchestrator) write(sid domain.SessionID, conn core.SignalConnection, frame core.Frame) {
	err := conn.TrySend(frame)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrBackpressure):
		switch o.cfg.Policy.OnBackPressure(sid, conn) {
		case app.KickConnection:
			log.Warn().Str("module", "orch").Str("sid", string(sid)).Str("conn", string(conn.ID())).Msg("send buffer full, closing connection")
			conn.Close()
		case app.DropFrame, app.NoAction:
			log.Debug().Str("module", "orch").Str("sid", string(sid)).Msg("send buffer full, frame dropped")
		}
	case errors.Is(err, core.ErrClosed):
		log.Debug().Str("module", "orch").Str("conn", string(conn.ID())).Msg("send on closed connection")
	default:
		log.Warn().Str("module", "orch").Err(err).Str("conn", string(conn.ID())).Msg("send")
	}
}
