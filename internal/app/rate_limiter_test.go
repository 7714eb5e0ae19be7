package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessageRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewMessageRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "limits are per session")

	now = now.Add(1500 * time.Millisecond)
	assert.True(t, rl.Allow("a"), "window slid past old attempts")

	rl.Forget("a")
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
}

func TestMessageRateLimiterDisabled(t *testing.T) {
	rl := NewMessageRateLimiter(0, time.Second)
	for range 100 {
		assert.True(t, rl.Allow("a"))
	}
}
