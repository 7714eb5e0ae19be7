package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dkeye/roulette/internal/adapters/signal"
	"github.com/dkeye/roulette/internal/app/orch"
	"github.com/dkeye/roulette/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	sessionName    = "RouletteSession"
	clientTokenKey = "ct"
	statsTimeout   = 2 * time.Second
)

// Backend is what the router needs from the orchestrator.
type Backend interface {
	signal.Engine
	Stats(ctx context.Context) (orch.Stats, error)
}

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware gives every browser a stable anonymous token kept in
// the signed cookie session. Clients use it as their sessionId.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, backend Backend) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   3600 * 24 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.GET("/session", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessionId": c.GetString("client_token")})
	})

	iceServers := cfg.WebRTC()
	api.GET("/ice-servers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"iceServers": iceServers})
	})

	api.GET("/stats", func(c *gin.Context) {
		sctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
		defer cancel()
		stats, err := backend.Stats(sctx)
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("stats")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats unavailable"})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	ctrl := signal.NewSignalWSController(backend, signal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,
	})
	api.GET("/ws/signal", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Int("ice_servers", len(iceServers)).Msg("router setup")
	return r
}
