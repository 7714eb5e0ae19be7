package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/roulette/internal/adapters/http"
	"github.com/dkeye/roulette/internal/app/orch"
	"github.com/dkeye/roulette/internal/config"
	"github.com/dkeye/roulette/internal/store"
	"github.com/dkeye/roulette/internal/store/mem"
	"github.com/dkeye/roulette/internal/store/postgres"
	"github.com/dkeye/roulette/internal/store/redis"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg.Log)

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("close store")
		}
	}()

	o := orch.New(st, orch.Config{
		DefaultMode:       cfg.DefaultMode(),
		MaxBatch:          cfg.Match.MaxBatch,
		MaxMessageLen:     cfg.Chat.MaxMessageLen,
		RateLimitMessages: cfg.Chat.RateLimitMessages,
		RateLimitInterval: cfg.Chat.RateLimitInterval,
		StoreTimeout:      cfg.Chat.StoreTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)

	r := router.SetupRouter(gctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		return o.Run(gctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("roulette server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}
	log.Info().Msg("Server exited gracefully")
}

func setupLogger(cfg config.Log) {
	if strings.EqualFold(cfg.Format, "json") {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Str("level", cfg.Level).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func openStore(ctx context.Context, cfg config.Store) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		return postgres.New(ctx, cfg.Postgres)
	case config.BackendRedis:
		return redis.New(ctx, cfg.Redis)
	default:
		log.Info().Str("module", "store.mem").Msg("using in-memory store")
		return mem.New(), nil
	}
}
