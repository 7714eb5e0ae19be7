// Package testutils starts throwaway PostgreSQL and Redis containers for
// integration tests. Containers are terminated on test cleanup.
package testutils

import (
	"context"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SkipIfShort skips container backed tests under -short.
func SkipIfShort(t testing.TB) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
}

// StartPostgres runs a postgres container and returns its DSN.
func StartPostgres(t testing.TB) string {
	t.Helper()
	SkipIfShort(t)

	ctx := context.Background()
	pg, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("roulette"),
		tcpostgres.WithUsername("roulette"),
		tcpostgres.WithPassword("roulette"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}
	return dsn
}

// StartRedis runs a redis container and returns its host:port address.
func StartRedis(t testing.TB) string {
	t.Helper()
	SkipIfShort(t)

	ctx := context.Background()
	rc, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() { _ = rc.Terminate(context.Background()) })

	endpoint, err := rc.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}
	return endpoint
}
