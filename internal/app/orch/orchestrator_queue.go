package orch

import (
	"github.com/dkeye/roulette/internal/core"
	"github.com/dkeye/roulette/internal/domain"
	"github.com/dkeye/roulette/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) joinQueue(conn core.SignalConnection, m *protocol.JoinQueue) {
	e, ok := o.caller(conn)
	if !ok || (m.SessionID != "" && domain.SessionID(m.SessionID) != e.Session.ID) {
		o.fail(conn, protocol.CodeNotRegistered, "Register first")
		return
	}
	if e.Session.Status == domain.StatusBusy {
		o.fail(conn, protocol.CodeInChat, "Already in chat")
		return
	}
	mode, err := domain.ParseMode(m.Mode, o.cfg.DefaultMode)
	if err != nil {
		o.fail(conn, protocol.CodeBadPayload, err.Error())
		return
	}
	o.enqueue(e.Session.ID, mode)
	o.reply(conn, protocol.Queued())
}

// enqueue marks sid queued and requests a pairing pass. Re-enqueueing an
// already queued session only refreshes its mode.
func (o *Orchestrator) enqueue(sid domain.SessionID, mode domain.Mode) {
	if !o.registry.SetQueued(sid, mode) {
		return
	}
	if o.queue.Push(sid) {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("mode", string(mode)).Msg("queued")
	}
	o.pending = true
}

func (o *Orchestrator) leaveQueue(conn core.SignalConnection) {
	e, ok := o.caller(conn)
	if !ok || e.Session.Status != domain.StatusQueued {
		return
	}
	o.dequeue(e.Session.ID)
	o.reply(conn, protocol.LeftQueue())
}

func (o *Orchestrator) dequeue(sid domain.SessionID) {
	o.queue.Remove(sid)
	o.registry.SetIdle(sid)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("left queue")
}

// next ends the current pairing, if any, and puts the caller straight back
// into the queue at its previous mode. The partner is left idle.
func (o *Orchestrator) next(conn core.SignalConnection) {
	e, ok := o.caller(conn)
	if !ok {
		o.fail(conn, protocol.CodeNotRegistered, "Register first")
		return
	}
	o.leaveRoom(e, "next")
	o.enqueue(e.Session.ID, e.Session.Mode)
	o.reply(conn, protocol.Queued())
}

func (o *Orchestrator) eligible(sid domain.SessionID) (domain.Mode, bool) {
	e, ok := o.registry.Lookup(sid)
	if !ok || e.Session.Status != domain.StatusQueued || !e.Live() {
		return "", false
	}
	return e.Session.Mode, true
}

// pairingPass matches queued sessions two at a time within each mode bucket.
// Both halves are re-validated right before the room is created. A pair that
// fails is discarded and another pass is requested for its valid half.
func (o *Orchestrator) pairingPass() {
	buckets := o.queue.Candidates(o.eligible)
	matched := 0
	for _, b := range buckets {
		ids := b.IDs
		for len(ids) >= 2 {
			a, c := ids[len(ids)-1], ids[len(ids)-2]
			ids = ids[:len(ids)-2]

			modeA, okA := o.eligible(a)
			modeC, okC := o.eligible(c)
			if !okA || !okC || modeA != b.Mode || modeC != b.Mode {
				log.Debug().Str("module", "orch").Str("a", string(a)).Str("b", string(c)).Msg("pair discarded")
				o.pending = true
				continue
			}

			o.queue.Remove(a)
			o.queue.Remove(c)
			room := o.rooms.Create(a, c, b.Mode)
			o.announce(room)
			matched++
		}
	}
	if matched > 0 {
		log.Debug().Str("module", "orch").Int("rooms", matched).Int("waiting", o.queue.Len()).Msg("pairing pass")
	}
}

func (o *Orchestrator) announce(room *domain.Room) {
	initiator, hasInitiator := room.Initiator()
	for _, sid := range []domain.SessionID{room.A, room.B} {
		partner, _ := room.Partner(sid)
		o.sendTo(sid, protocol.Matched(string(room.ID), string(partner), string(room.Mode), hasInitiator && sid == initiator))
	}
}
