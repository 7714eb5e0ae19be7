package orch

import (
	"github.com/dkeye/roulette/internal/app"
	"github.com/dkeye/roulette/internal/core"
	"github.com/dkeye/roulette/internal/domain"
	"github.com/dkeye/roulette/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) register(conn core.SignalConnection, m *protocol.Register) {
	sid, err := domain.ParseSessionID(m.SessionID)
	if err != nil {
		o.fail(conn, protocol.CodeNoSession, "sessionId required")
		return
	}

	// A connection represents at most one session.
	if cur, ok := o.caller(conn); ok {
		if cur.Session.ID == sid {
			o.reply(conn, protocol.Registered(string(sid)))
			return
		}
		o.unregister(conn, "re-register")
	}

	if old, ok := o.registry.Lookup(sid); ok && old.Conn.ID() != conn.ID() {
		o.evict(old)
	}

	o.registry.Bind(sid, conn, o.cfg.DefaultMode)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("conn", string(conn.ID())).Msg("registered")
	o.reply(conn, protocol.Registered(string(sid)))
	o.broadcastOnline()
}

// evict removes every trace of a session bound to a stale connection and
// closes that connection. The stale connection's later detach is a no-op
// because the registry no longer maps it.
func (o *Orchestrator) evict(old *app.Entry) {
	sid := old.Session.ID
	o.queue.Remove(sid)
	o.leaveRoom(old, "duplicate login")
	o.registry.Unbind(sid, old.Conn.ID())
	old.Conn.Close()
	log.Warn().Str("module", "orch").Str("sid", string(sid)).Str("conn", string(old.Conn.ID())).Msg("evicted previous connection")
}

// unregister drops the session bound to conn, if conn is still its current
// connection.
func (o *Orchestrator) unregister(conn core.SignalConnection, reason string) {
	e, ok := o.caller(conn)
	if !ok {
		return
	}
	sid := e.Session.ID
	o.queue.Remove(sid)
	o.leaveRoom(e, reason)
	if !o.registry.Unbind(sid, conn.ID()) {
		return
	}
	o.limiter.Forget(sid)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("reason", reason).Msg("unregistered")
	o.broadcastOnline()
}

// broadcastOnline publishes the registered session count to every attached
// connection, registered or not.
func (o *Orchestrator) broadcastOnline() {
	frame, err := protocol.Encode(protocol.OnlineCount(o.registry.Count()))
	if err != nil {
		log.Error().Str("module", "orch").Err(err).Msg("encode online count")
		return
	}
	for _, c := range o.conns {
		var sid domain.SessionID
		if e, ok := o.caller(c); ok {
			sid = e.Session.ID
		}
		o.write(sid, c, frame)
	}
}
