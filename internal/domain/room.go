package domain

import "time"

type RoomID string

// Room is an active two-party pairing. A is always the initiator in video mode.
type Room struct {
	ID        RoomID
	A         SessionID
	B         SessionID
	Mode      Mode
	CreatedAt time.Time
}

// Has reports whether sid is one of the two participants.
func (r *Room) Has(sid SessionID) bool { return r.A == sid || r.B == sid }

// Partner returns the other participant. ok is false when sid is not in the room.
func (r *Room) Partner(sid SessionID) (SessionID, bool) {
	switch sid {
	case r.A:
		return r.B, true
	case r.B:
		return r.A, true
	default:
		return "", false
	}
}

// Initiator is the participant that originates the WebRTC offer.
// Chat rooms have no media negotiation and therefore no initiator.
func (r *Room) Initiator() (SessionID, bool) {
	if r.Mode != ModeVideo {
		return "", false
	}
	return r.A, true
}
