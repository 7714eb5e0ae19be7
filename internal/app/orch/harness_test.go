package orch

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/dkeye/roulette/internal/app"
	"github.com/dkeye/roulette/internal/core/coretest"
	"github.com/dkeye/roulette/internal/domain"
	"github.com/dkeye/roulette/internal/protocol"
	"github.com/dkeye/roulette/internal/store"
	"github.com/dkeye/roulette/internal/store/mem"
	"github.com/stretchr/testify/require"
)

// harness drives the orchestrator without its goroutine so every turn is
// deterministic.
type harness struct {
	t *testing.T
	o *Orchestrator
}

func newHarness(t *testing.T, st store.Store, mutate ...func(*Config)) *harness {
	t.Helper()
	if st == nil {
		st = mem.New()
	}
	cfg := Config{
		QueueOptions: []app.QueueOption{app.WithRandSource(rand.NewPCG(1, 2))},
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	return &harness{t: t, o: New(st, cfg)}
}

func (h *harness) attach(id string) *coretest.Conn {
	c := coretest.NewConn(id)
	h.o.handle(event{kind: evAttach, conn: c})
	return c
}

func (h *harness) detach(c *coretest.Conn) {
	c.Close()
	h.o.handle(event{kind: evDetach, conn: c})
}

func (h *harness) send(c *coretest.Conn, in protocol.Inbound) {
	h.o.handle(event{kind: evInbound, conn: c, in: in})
}

// turn finishes in-flight persistence, handles everything buffered and runs
// the pending pairing pass, then checks the state invariants.
func (h *harness) turn() {
	h.t.Helper()
	h.o.inflight.Wait()
	h.o.drain(len(h.o.events))
	h.o.flush()
	require.NoError(h.t, h.o.checkInvariants())
}

// register attaches a connection named after sid and registers it.
func (h *harness) register(sid string) *coretest.Conn {
	h.t.Helper()
	c := h.attach("conn-" + sid)
	h.send(c, &protocol.Register{SessionID: sid})
	h.turn()
	return c
}

// pair registers a and b, queues both in mode and returns their connections
// after the match.
func (h *harness) pair(a, b string, mode domain.Mode) (*coretest.Conn, *coretest.Conn, domain.RoomID) {
	h.t.Helper()
	ca, cb := h.register(a), h.register(b)
	h.send(ca, &protocol.JoinQueue{SessionID: a, Mode: string(mode)})
	h.send(cb, &protocol.JoinQueue{SessionID: b, Mode: string(mode)})
	h.turn()
	e, ok := h.o.registry.Lookup(domain.SessionID(a))
	require.True(h.t, ok)
	require.Equal(h.t, domain.StatusBusy, e.Session.Status)
	ca.Reset()
	cb.Reset()
	return ca, cb, e.Session.RoomID
}

func (h *harness) status(sid string) domain.Status {
	e, ok := h.o.registry.Lookup(domain.SessionID(sid))
	require.True(h.t, ok, "session %s not registered", sid)
	return e.Session.Status
}

// checkInvariants verifies that rooms, queue and registry agree.
func (o *Orchestrator) checkInvariants() error {
	var err error
	o.registry.Each(func(e *app.Entry) {
		if err != nil {
			return
		}
		s := e.Session
		switch s.Status {
		case domain.StatusBusy:
			room, ok := o.rooms.Get(s.RoomID)
			if !ok || !room.Has(s.ID) {
				err = fmt.Errorf("%s busy in missing room %q", s.ID, s.RoomID)
			}
		default:
			if s.RoomID != "" {
				err = fmt.Errorf("%s is %s with room %q", s.ID, s.Status, s.RoomID)
			}
		}
		if (s.Status == domain.StatusQueued) != o.queue.Contains(s.ID) {
			err = fmt.Errorf("%s status %s disagrees with queue membership", s.ID, s.Status)
		}
	})
	if err != nil {
		return err
	}
	o.rooms.Each(func(r *domain.Room) {
		for _, sid := range []domain.SessionID{r.A, r.B} {
			e, ok := o.registry.Lookup(sid)
			if !ok || e.Session.Status != domain.StatusBusy || e.Session.RoomID != r.ID {
				err = fmt.Errorf("room %s participant %s is not busy in it", r.ID, sid)
			}
		}
	})
	if err != nil {
		return err
	}
	seen := make(map[domain.SessionID]struct{})
	for _, sid := range o.queue.Snapshot() {
		if _, dup := seen[sid]; dup {
			return fmt.Errorf("%s queued twice", sid)
		}
		seen[sid] = struct{}{}
		if _, ok := o.registry.Lookup(sid); !ok {
			return fmt.Errorf("%s queued but not registered", sid)
		}
	}
	return nil
}
