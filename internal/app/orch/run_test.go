package orch

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/dkeye/roulette/internal/core/coretest"
	"github.com/dkeye/roulette/internal/domain"
	"github.com/dkeye/roulette/internal/protocol"
	"github.com/dkeye/roulette/internal/store/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLoop(t *testing.T) {
	o := New(mem.New(), Config{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	ca, cb := coretest.NewConn("a"), coretest.NewConn("b")
	o.Attach(ca)
	o.Attach(cb)
	o.Submit(ca, &protocol.Register{SessionID: "alice"})
	o.Submit(cb, &protocol.Register{SessionID: "bob"})
	o.Submit(ca, &protocol.JoinQueue{Mode: "chat"})
	o.Submit(cb, &protocol.JoinQueue{Mode: "chat"})

	require.Eventually(t, func() bool {
		return len(ca.OfType("matched")) == 1 && len(cb.OfType("matched")) == 1
	}, time.Second, 5*time.Millisecond)

	stats, err := o.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Online)
	assert.Equal(t, map[string]int{"chat": 1}, stats.Rooms)

	room := ca.OfType("matched")[0].String("roomId")
	o.Submit(cb, &protocol.Message{RoomID: room, Text: "hey"})
	require.Eventually(t, func() bool { return len(ca.OfType("message")) == 1 }, time.Second, 5*time.Millisecond)

	o.Detach(cb)
	require.Eventually(t, func() bool { return len(ca.OfType("partner-left")) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	assert.True(t, ca.Closed())

	_, err = o.Stats(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}

// TestRandomChurnKeepsInvariants replays a long random sequence of client
// actions and checks the room/queue/registry invariants after every turn.
func TestRandomChurnKeepsInvariants(t *testing.T) {
	h := newHarness(t, nil)
	rng := rand.New(rand.NewPCG(7, 11))

	sids := []string{"s1", "s2", "s3", "s4", "s5", "s6"}
	conns := make(map[string]*coretest.Conn)
	seq := 0

	for step := range 2000 {
		sid := sids[rng.IntN(len(sids))]
		c, ok := conns[sid]
		switch op := rng.IntN(9); {
		case !ok || op == 0:
			seq++
			c = h.attach(fmt.Sprintf("%s-%d", sid, seq))
			h.send(c, &protocol.Register{SessionID: sid})
			conns[sid] = c
		case op == 1 || op == 2:
			mode := domain.ModeChat
			if rng.IntN(2) == 0 {
				mode = domain.ModeVideo
			}
			h.send(c, &protocol.JoinQueue{Mode: string(mode)})
		case op == 3:
			h.send(c, &protocol.LeaveQueue{})
		case op == 4:
			h.send(c, &protocol.Next{})
		case op == 5:
			h.send(c, &protocol.EndChat{})
		case op == 6:
			h.detach(c)
			delete(conns, sid)
		case op == 7:
			if e, ok := h.o.registry.Lookup(domain.SessionID(sid)); ok {
				h.send(c, &protocol.Message{RoomID: string(e.Session.RoomID), Text: "x"})
			}
		default:
			h.send(c, &protocol.Typing{RoomID: "r", Typing: true})
		}

		// let several actions share a turn now and then
		if rng.IntN(3) != 0 {
			h.turn()
		}
		require.NoError(t, h.o.checkInvariants(), "step %d", step)
	}
}
