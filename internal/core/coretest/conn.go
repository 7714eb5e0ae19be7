// Package coretest provides an in-memory SignalConnection for tests.
package coretest

import (
	"encoding/json"
	"sync"

	"github.com/dkeye/roulette/internal/core"
)

// Conn records every frame sent to it.
type Conn struct {
	id core.ConnID

	mu     sync.Mutex
	frames []core.Frame
	closed bool
	// Capacity, when positive, makes TrySend fail with ErrBackpressure once
	// that many frames are buffered.
	Capacity int
}

func NewConn(id string) *Conn { return &Conn{id: core.ConnID(id)} }

func (c *Conn) ID() core.ConnID { return c.id }

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrClosed
	}
	if c.Capacity > 0 && len(c.frames) >= c.Capacity {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Event is a decoded outbound frame.
type Event map[string]any

func (e Event) Type() string {
	s, _ := e["type"].(string)
	return s
}

func (e Event) String(key string) string {
	s, _ := e[key].(string)
	return s
}

// Events decodes every frame received so far.
func (c *Conn) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, 0, len(c.frames))
	for _, f := range c.frames {
		var e Event
		if err := json.Unmarshal(f, &e); err == nil {
			out = append(out, e)
		}
	}
	return out
}

// OfType returns the received events with the given type tag.
func (c *Conn) OfType(typ string) []Event {
	var out []Event
	for _, e := range c.Events() {
		if e.Type() == typ {
			out = append(out, e)
		}
	}
	return out
}

// Frames returns the raw frames received so far.
func (c *Conn) Frames() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Frame(nil), c.frames...)
}

// Reset forgets the received frames.
func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}
