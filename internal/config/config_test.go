package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkeye/roulette/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ROULETTE_SECRET", "s3cret")
	cfg, err := Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, 64, cfg.SendBuffer)
	assert.Equal(t, domain.ModeVideo, cfg.DefaultMode())
	assert.Equal(t, 256, cfg.Match.MaxBatch)
	assert.Equal(t, 2000, cfg.Chat.MaxMessageLen)
	assert.Equal(t, 5*time.Second, cfg.Chat.RateLimitInterval)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "roulette", cfg.Store.Redis.Prefix)

	ice := cfg.WebRTC()
	require.Len(t, ice, 1)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, ice[0].URLs)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
secret: file-secret
port: 9090
match:
  default_mode: chat
chat:
  rate_limit_messages: 3
store:
  backend: redis
  redis:
    address: redis:6379
ice_servers:
  - urls: ["turn:turn.example.com:3478"]
    username: u
    credential: p
`)
	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "file-secret", cfg.Secret)
	assert.Equal(t, domain.ModeChat, cfg.DefaultMode())
	assert.Equal(t, 3, cfg.Chat.RateLimitMessages)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Address)

	ice := cfg.WebRTC()
	require.Len(t, ice, 1)
	assert.Equal(t, "u", ice[0].Username)
	assert.Equal(t, "p", ice[0].Credential)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ROULETTE_SECRET", "s3cret")
	t.Setenv("ROULETTE_PORT", "7070")
	t.Setenv("ROULETTE_CHAT_MAX_MESSAGE_LEN", "10")

	cfg, err := Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, 10, cfg.Chat.MaxMessageLen)
}

func TestLoadPortFlag(t *testing.T) {
	t.Setenv("ROULETTE_SECRET", "s3cret")
	cfg, err := Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "--port", "6060"})
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Port)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown mode":           "secret: s\nmatch:\n  default_mode: audio\n",
		"unknown backend":        "secret: s\nstore:\n  backend: mongo\n",
		"postgres no dsn":        "secret: s\nstore:\n  backend: postgres\n",
		"release without secret": "mode: release\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load([]string{"--config", writeConfig(t, body)})
			assert.Error(t, err)
		})
	}
}

func TestLoadDebugWithoutSecret(t *testing.T) {
	cfg, err := Load([]string{"--config", writeConfig(t, "mode: debug\n")})
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Secret)
}
