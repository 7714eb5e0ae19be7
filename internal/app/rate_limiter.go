package app

import (
	"sync"
	"time"

	"github.com/dkeye/roulette/internal/domain"
)

// MessageRateLimiter is a sliding-window limiter keyed by session.
type MessageRateLimiter struct {
	mu       sync.Mutex
	history  map[domain.SessionID][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

// NewMessageRateLimiter allows limit messages per interval. A non-positive
// limit disables limiting.
func NewMessageRateLimiter(limit int, interval time.Duration) *MessageRateLimiter {
	return &MessageRateLimiter{
		history:  make(map[domain.SessionID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *MessageRateLimiter) Allow(sid domain.SessionID) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[sid]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[sid] = fresh
		return false
	}

	rl.history[sid] = append(fresh, now)
	return true
}

// Forget drops the history of a session that went away.
func (rl *MessageRateLimiter) Forget(sid domain.SessionID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, sid)
}
