// Package store defines the persistence collaborator used by the chat channel.
// The matchmaking, room and relay logic never touch it.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/roulette/internal/domain"
)

//go:generate mockgen -destination=mock/store.go -package=mock github.com/dkeye/roulette/internal/store Store

// Store represents a backend store.
type Store interface {
	// StoreMessage persists one chat message and returns its server timestamp.
	StoreMessage(ctx context.Context, sender, receiver domain.SessionID, text string) (time.Time, error)
	// StoreReport records an abuse report filed by reporter against a room.
	StoreReport(ctx context.Context, room domain.RoomID, reporter domain.SessionID, reason string) error
	Close() error
}

// Message represents a stored chat message.
type Message struct {
	SenderID   domain.SessionID `json:"sender_id"`
	ReceiverID domain.SessionID `json:"receiver_id"`
	Text       string           `json:"text"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Report represents a stored abuse report.
type Report struct {
	RoomID     domain.RoomID    `json:"room_id"`
	ReporterID domain.SessionID `json:"reporter_id"`
	Reason     string           `json:"reason"`
	CreatedAt  time.Time        `json:"created_at"`
}

var ErrClosed = errors.New("store closed")
