package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dkeye/roulette/internal/app/orch"
	"github.com/dkeye/roulette/internal/config"
	"github.com/dkeye/roulette/internal/core"
	"github.com/dkeye/roulette/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	stats orch.Stats
	err   error
}

func (stubBackend) Attach(core.SignalConnection)                   {}
func (stubBackend) Detach(core.SignalConnection)                   {}
func (stubBackend) Submit(core.SignalConnection, protocol.Inbound) {}
func (s stubBackend) Stats(context.Context) (orch.Stats, error)    { return s.stats, s.err }

func testConfig() *config.Config {
	return &config.Config{
		Mode:   "test",
		Secret: "test-secret",
		ICEServers: []config.ICEServer{
			{URLs: []string{"stun:stun.example.com:3478"}},
		},
	}
}

func newRouter(t *testing.T, backend Backend) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return SetupRouter(context.Background(), testConfig(), backend)
}

func TestHealthz(t *testing.T) {
	r := newRouter(t, stubBackend{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSessionTokenIsStable(t *testing.T) {
	r := newRouter(t, stubBackend{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var first map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.NotEmpty(t, first["sessionId"])

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)

	var second map[string]string
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &second))
	assert.Equal(t, first["sessionId"], second["sessionId"])
}

func TestICEServers(t *testing.T) {
	r := newRouter(t, stubBackend{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ice-servers", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		ICEServers []struct {
			URLs []string `json:"urls"`
		} `json:"iceServers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.example.com:3478"}, body.ICEServers[0].URLs)
}

func TestStats(t *testing.T) {
	r := newRouter(t, stubBackend{stats: orch.Stats{Online: 3, Queued: map[string]int{"chat": 1}}})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got orch.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 3, got.Online)
	assert.Equal(t, 1, got.Queued["chat"])
}

func TestStatsUnavailable(t *testing.T) {
	r := newRouter(t, stubBackend{err: errors.New("stopped")})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
