package orch

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/dkeye/roulette/internal/app"
	"github.com/dkeye/roulette/internal/core"
	"github.com/dkeye/roulette/internal/domain"
	"github.com/dkeye/roulette/internal/protocol"
	"github.com/rs/zerolog/log"
)

// leaveRoom tears down the room e is in and tells the partner. Both sides end
// idle. Nothing happens when e is not in a room.
func (o *Orchestrator) leaveRoom(e *app.Entry, reason string) {
	if !e.Session.InRoom() {
		return
	}
	partner, ok := o.rooms.Teardown(e.Session.RoomID, e.Session.ID, reason)
	if !ok {
		return
	}
	o.sendTo(partner, protocol.PartnerLeft())
}

func (o *Orchestrator) endChat(conn core.SignalConnection) {
	e, ok := o.caller(conn)
	if !ok {
		o.fail(conn, protocol.CodeNotRegistered, "Register first")
		return
	}
	switch e.Session.Status {
	case domain.StatusBusy:
		o.leaveRoom(e, "end")
	case domain.StatusQueued:
		o.dequeue(e.Session.ID)
	}
}

// participant resolves the caller and the room it names, if the caller is one
// of that room's two participants.
func (o *Orchestrator) participant(conn core.SignalConnection, roomID string) (*app.Entry, *domain.Room, bool) {
	e, ok := o.caller(conn)
	if !ok {
		return nil, nil, false
	}
	room, ok := o.rooms.Get(domain.RoomID(roomID))
	if !ok || !room.Has(e.Session.ID) || e.Session.RoomID != room.ID {
		return e, nil, false
	}
	return e, room, true
}

func (o *Orchestrator) message(conn core.SignalConnection, m *protocol.Message) {
	if _, ok := o.caller(conn); !ok {
		o.fail(conn, protocol.CodeNotRegistered, "Register first")
		return
	}
	text := strings.TrimSpace(m.Text)
	if text == "" {
		return
	}
	e, room, ok := o.participant(conn, m.RoomID)
	if !ok {
		log.Debug().Str("module", "orch").Str("room", m.RoomID).Msg("message outside own room dropped")
		return
	}
	if utf8.RuneCountInString(text) > o.cfg.MaxMessageLen {
		o.fail(conn, protocol.CodeMsgFailed, "Message too long")
		return
	}
	sid := e.Session.ID
	if !o.limiter.Allow(sid) {
		o.fail(conn, protocol.CodeRateLimited, "Too many messages")
		return
	}
	partner, _ := room.Partner(sid)

	// Each store waits for the sender's previous one, so completions come
	// back in send order.
	prev := o.chains[sid]
	chain := make(chan struct{})
	o.chains[sid] = chain

	done := &completion{sid: sid, connID: conn.ID(), room: room.ID, text: text, chain: chain}
	ctx := o.baseCtx
	o.inflight.Go(func() {
		defer close(chain)
		if prev != nil {
			<-prev
		}
		sctx, cancel := context.WithTimeout(ctx, o.cfg.StoreTimeout)
		defer cancel()
		done.at, done.err = o.store.StoreMessage(sctx, sid, partner, text)
		o.post(event{kind: evMessageStored, done: done})
	})
}

// onMessageStored runs on the loop once persistence finished. The room may be
// gone by now, so participancy is checked again before broadcasting.
func (o *Orchestrator) onMessageStored(c *completion) {
	if o.chains[c.sid] == c.chain {
		delete(o.chains, c.sid)
	}
	if c.err != nil {
		log.Error().Str("module", "orch").Err(c.err).Str("sid", string(c.sid)).Str("room", string(c.room)).Msg("message store failed")
		if e, ok := o.registry.Lookup(c.sid); ok && e.Conn.ID() == c.connID {
			o.deliver(c.sid, e.Conn, protocol.Error(protocol.CodeMsgFailed, "Failed to send message"))
		}
		return
	}
	room, ok := o.rooms.Get(c.room)
	if !ok || !room.Has(c.sid) {
		log.Debug().Str("module", "orch").Str("room", string(c.room)).Msg("room closed before message broadcast")
		return
	}
	out := protocol.ChatMessage(string(c.sid), c.text, c.at)
	o.sendTo(room.A, out)
	o.sendTo(room.B, out)
}

func (o *Orchestrator) typing(conn core.SignalConnection, m *protocol.Typing) {
	e, room, ok := o.participant(conn, m.RoomID)
	if !ok {
		return
	}
	partner, _ := room.Partner(e.Session.ID)
	o.sendTo(partner, protocol.TypingIndicator(string(e.Session.ID), m.Typing))
}

func (o *Orchestrator) report(conn core.SignalConnection, m *protocol.Report) {
	e, room, ok := o.participant(conn, m.RoomID)
	if !ok {
		if e == nil {
			o.fail(conn, protocol.CodeNotRegistered, "Register first")
			return
		}
		o.fail(conn, protocol.CodeMsgFailed, "Not in this room")
		return
	}
	sid := e.Session.ID
	reason := strings.TrimSpace(m.Reason)
	done := &completion{sid: sid, connID: conn.ID(), room: room.ID}
	ctx := o.baseCtx
	o.inflight.Go(func() {
		sctx, cancel := context.WithTimeout(ctx, o.cfg.StoreTimeout)
		defer cancel()
		done.err = o.store.StoreReport(sctx, room.ID, sid, reason)
		o.post(event{kind: evReportStored, done: done})
	})
}

func (o *Orchestrator) onReportStored(c *completion) {
	e, ok := o.registry.Lookup(c.sid)
	if !ok || e.Conn.ID() != c.connID {
		return
	}
	if c.err != nil {
		log.Error().Str("module", "orch").Err(c.err).Str("sid", string(c.sid)).Str("room", string(c.room)).Msg("report store failed")
		o.deliver(c.sid, e.Conn, protocol.Error(protocol.CodeMsgFailed, "Failed to file report"))
		return
	}
	log.Info().Str("module", "orch").Str("sid", string(c.sid)).Str("room", string(c.room)).Msg("report filed")
	o.deliver(c.sid, e.Conn, protocol.Reported())
}

// target resolves the relay destination. Signaling only flows between the
// two participants of a live room; anything else is dropped.
func (o *Orchestrator) target(conn core.SignalConnection, to string) (from, dst domain.SessionID, ok bool) {
	e, found := o.caller(conn)
	if !found || !e.Session.InRoom() {
		return "", "", false
	}
	room, found := o.rooms.Get(e.Session.RoomID)
	if !found {
		return "", "", false
	}
	partner, found := room.Partner(e.Session.ID)
	if !found || partner != domain.SessionID(to) {
		return "", "", false
	}
	return e.Session.ID, partner, true
}

func (o *Orchestrator) relay(conn core.SignalConnection, to string, wrap func(string, json.RawMessage) protocol.SDPEvent, sdp json.RawMessage) {
	from, dst, ok := o.target(conn, to)
	if !ok {
		log.Debug().Str("module", "orch").Str("to", to).Msg("relay dropped")
		return
	}
	o.sendTo(dst, wrap(string(from), sdp))
}

func (o *Orchestrator) relayICE(conn core.SignalConnection, m *protocol.ICECandidate) {
	from, dst, ok := o.target(conn, m.To)
	if !ok {
		log.Debug().Str("module", "orch").Str("to", m.To).Msg("relay dropped")
		return
	}
	o.sendTo(dst, protocol.RelayICE(string(from), m.Candidate))
}
