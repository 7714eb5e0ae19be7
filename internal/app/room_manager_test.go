package app

import (
	"testing"

	"github.com/dkeye/roulette/internal/core/coretest"
	"github.com/dkeye/roulette/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPair(t *testing.T) (*Registry, *RoomManager) {
	t.Helper()
	reg := NewRegistry()
	reg.Bind("b", coretest.NewConn("cb"), domain.ModeVideo)
	reg.Bind("a", coretest.NewConn("ca"), domain.ModeVideo)
	require.True(t, reg.SetQueued("a", domain.ModeVideo))
	require.True(t, reg.SetQueued("b", domain.ModeVideo))
	return reg, NewRoomManager(reg)
}

func TestRoomManagerCreate(t *testing.T) {
	reg, rooms := newPair(t)

	room := rooms.Create("b", "a", domain.ModeVideo)
	assert.Equal(t, domain.SessionID("a"), room.A, "smaller id is participant A")
	assert.Equal(t, domain.SessionID("b"), room.B)

	initiator, ok := room.Initiator()
	require.True(t, ok)
	assert.Equal(t, domain.SessionID("a"), initiator)

	for _, sid := range []domain.SessionID{"a", "b"} {
		e, _ := reg.Lookup(sid)
		assert.Equal(t, domain.StatusBusy, e.Session.Status)
		assert.Equal(t, room.ID, e.Session.RoomID)
	}
	got, ok := rooms.Get(room.ID)
	require.True(t, ok)
	assert.Same(t, room, got)
	assert.Equal(t, 1, rooms.Count())
}

func TestRoomManagerTeardown(t *testing.T) {
	reg, rooms := newPair(t)
	room := rooms.Create("a", "b", domain.ModeVideo)

	partner, ok := rooms.Teardown(room.ID, "a", "end")
	require.True(t, ok)
	assert.Equal(t, domain.SessionID("b"), partner)

	for _, sid := range []domain.SessionID{"a", "b"} {
		e, _ := reg.Lookup(sid)
		assert.Equal(t, domain.StatusIdle, e.Session.Status)
		assert.Empty(t, e.Session.RoomID)
	}
	_, ok = rooms.Get(room.ID)
	assert.False(t, ok)

	_, ok = rooms.Teardown(room.ID, "b", "duplicate")
	assert.False(t, ok, "second teardown is already resolved")
}

func TestRoomManagerTeardownIgnoresStrangers(t *testing.T) {
	reg, rooms := newPair(t)
	room := rooms.Create("a", "b", domain.ModeChat)

	_, ok := rooms.Teardown(room.ID, "mallory", "end")
	assert.False(t, ok)
	e, _ := reg.Lookup("a")
	assert.Equal(t, domain.StatusBusy, e.Session.Status)

	_, ok = rooms.Teardown("nope", "a", "end")
	assert.False(t, ok)
	assert.Equal(t, map[domain.Mode]int{domain.ModeChat: 1}, rooms.CountByMode())
}
