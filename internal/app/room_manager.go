package app

import (
	"time"

	"github.com/dkeye/roulette/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RoomManager owns the pairing relation. A room exists exactly while both of
// its participants are busy in the registry and reference it.
type RoomManager struct {
	reg   *Registry
	rooms map[domain.RoomID]*domain.Room
	newID func() domain.RoomID
	now   func() time.Time
}

func NewRoomManager(reg *Registry) *RoomManager {
	return &RoomManager{
		reg:   reg,
		rooms: make(map[domain.RoomID]*domain.Room),
		newID: func() domain.RoomID { return domain.RoomID(uuid.NewString()) },
		now:   time.Now,
	}
}

// Create pairs a and b and flips both sessions to busy. The lexicographically
// smaller id becomes participant A, which is the offer initiator for video.
func (m *RoomManager) Create(a, b domain.SessionID, mode domain.Mode) *domain.Room {
	if b < a {
		a, b = b, a
	}
	room := &domain.Room{
		ID:        m.newID(),
		A:         a,
		B:         b,
		Mode:      mode,
		CreatedAt: m.now(),
	}
	m.rooms[room.ID] = room
	m.reg.SetBusy(a, room.ID, mode)
	m.reg.SetBusy(b, room.ID, mode)
	log.Info().Str("module", "app.rooms").Str("room", string(room.ID)).Str("a", string(a)).Str("b", string(b)).Str("mode", string(mode)).Msg("room created")
	return room
}

func (m *RoomManager) Get(id domain.RoomID) (*domain.Room, bool) {
	r, ok := m.rooms[id]
	return r, ok
}

// Teardown destroys the room that leaving is part of, resets the partner to
// idle and clears leaving's room reference (leaving ends idle too; the caller
// re-queues it when needed). It returns the partner to notify. Unknown rooms
// and non-participants report ok=false and change nothing.
func (m *RoomManager) Teardown(id domain.RoomID, leaving domain.SessionID, reason string) (partner domain.SessionID, ok bool) {
	room, found := m.rooms[id]
	if !found {
		return "", false
	}
	partner, ok = room.Partner(leaving)
	if !ok {
		return "", false
	}
	delete(m.rooms, id)
	m.reg.SetIdle(partner)
	m.reg.SetIdle(leaving)
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("left", string(leaving)).Str("partner", string(partner)).Str("reason", reason).Msg("room closed")
	return partner, true
}

func (m *RoomManager) Count() int { return len(m.rooms) }

// CountByMode is used for stats only.
func (m *RoomManager) CountByMode() map[domain.Mode]int {
	out := make(map[domain.Mode]int)
	for _, r := range m.rooms {
		out[r.Mode]++
	}
	return out
}

// Each calls fn for every live room.
func (m *RoomManager) Each(fn func(*domain.Room)) {
	for _, r := range m.rooms {
		fn(r)
	}
}
