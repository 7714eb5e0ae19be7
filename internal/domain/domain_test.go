package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSessionID(t *testing.T) {
	sid, err := ParseSessionID("  abc ")
	require.NoError(t, err)
	assert.Equal(t, SessionID("abc"), sid)

	_, err = ParseSessionID("   ")
	assert.ErrorIs(t, err, ErrEmptySessionID)

	_, err = ParseSessionID(strings.Repeat("x", MaxSessionIDLen+1))
	assert.ErrorIs(t, err, ErrSessionIDTooLong)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		raw     string
		want    Mode
		wantErr bool
	}{
		{"", ModeVideo, false},
		{"chat", ModeChat, false},
		{"VIDEO", ModeVideo, false},
		{"audio", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseMode(tt.raw, ModeVideo)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoomPartner(t *testing.T) {
	r := &Room{ID: "r1", A: "a", B: "b", Mode: ModeVideo}

	p, ok := r.Partner("a")
	assert.True(t, ok)
	assert.Equal(t, SessionID("b"), p)

	p, ok = r.Partner("b")
	assert.True(t, ok)
	assert.Equal(t, SessionID("a"), p)

	_, ok = r.Partner("c")
	assert.False(t, ok)

	init, ok := r.Initiator()
	assert.True(t, ok)
	assert.Equal(t, SessionID("a"), init)

	r.Mode = ModeChat
	_, ok = r.Initiator()
	assert.False(t, ok)
}
