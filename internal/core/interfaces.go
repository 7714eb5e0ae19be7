package core

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Frame is a raw encoded outbound event.
type Frame []byte

// ConnID identifies one transport attachment. A session may be served by
// several connections over its lifetime, never by two at once.
type ConnID string

func NewConnID() ConnID { return ConnID(uuid.NewString()) }

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	ID() ConnID
	// TrySend queues f without blocking. It returns ErrBackpressure when the
	// outbound buffer is full and ErrClosed after Close.
	TrySend(f Frame) error
	Close()
	Closed() bool
}
