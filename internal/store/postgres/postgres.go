package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/roulette/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Config represents the PostgreSQL store config structure.
type Config struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// Postgres represents the PostgreSQL implementation of the Store interface.
type Postgres struct {
	pool *pgxpool.Pool
}

// New migrates the schema and opens a connection pool.
func New(ctx context.Context, cfg Config) (*Postgres, error) {
	if err := Migrate(cfg.DSN); err != nil {
		return nil, err
	}

	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	log.Info().Str("module", "store.postgres").Int32("max_conns", pcfg.MaxConns).Msg("connected")
	return &Postgres{pool: pool}, nil
}

// NewWithPool wraps an already open pool. The schema must exist.
func NewWithPool(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const insertMessage = `
INSERT INTO messages (sender_id, receiver_id, text)
VALUES ($1, $2, $3)
RETURNING created_at`

func (p *Postgres) StoreMessage(ctx context.Context, sender, receiver domain.SessionID, text string) (time.Time, error) {
	var ts time.Time
	if err := p.pool.QueryRow(ctx, insertMessage, string(sender), string(receiver), text).Scan(&ts); err != nil {
		return time.Time{}, fmt.Errorf("insert message: %w", err)
	}
	return ts.UTC(), nil
}

const insertReport = `
INSERT INTO reports (room_id, reporter_id, reason)
VALUES ($1, $2, $3)`

func (p *Postgres) StoreReport(ctx context.Context, room domain.RoomID, reporter domain.SessionID, reason string) error {
	if _, err := p.pool.Exec(ctx, insertReport, string(room), string(reporter), reason); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
