package mem

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/roulette/internal/domain"
	"github.com/dkeye/roulette/internal/store"
)

// InMemory keeps messages and reports in process memory. It is the default
// backend and loses everything on restart.
type InMemory struct {
	mu       sync.Mutex
	messages []store.Message
	reports  []store.Report
	closed   bool
	now      func() time.Time
}

func New() *InMemory {
	return &InMemory{now: time.Now}
}

func (m *InMemory) StoreMessage(_ context.Context, sender, receiver domain.SessionID, text string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return time.Time{}, store.ErrClosed
	}
	ts := m.now().UTC()
	m.messages = append(m.messages, store.Message{
		SenderID:   sender,
		ReceiverID: receiver,
		Text:       text,
		CreatedAt:  ts,
	})
	return ts, nil
}

func (m *InMemory) StoreReport(_ context.Context, room domain.RoomID, reporter domain.SessionID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return store.ErrClosed
	}
	m.reports = append(m.reports, store.Report{
		RoomID:     room,
		ReporterID: reporter,
		Reason:     reason,
		CreatedAt:  m.now().UTC(),
	})
	return nil
}

// Messages returns a copy of the stored messages.
func (m *InMemory) Messages() []store.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.messages)
}

// Reports returns a copy of the stored reports.
func (m *InMemory) Reports() []store.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.reports)
}

func (m *InMemory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
