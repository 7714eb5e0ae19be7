package postgres

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDirtySchema means a previous migration stopped halfway. It needs a manual
// fix followed by `migrate force`.
var ErrDirtySchema = errors.New("schema is dirty")

// Migrate brings the schema at databaseURL up to date.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("migration instance: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn().Str("module", "store.postgres").AnErr("source", srcErr).AnErr("db", dbErr).Msg("closing migrator")
		}
	}()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration version: %w", err)
	}
	if dirty {
		log.Error().Str("module", "store.postgres").Uint("version", version).Msg("schema dirty, refusing to migrate")
		return fmt.Errorf("%w at version %d", ErrDirtySchema, version)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Str("module", "store.postgres").Msg("schema up to date")
			return nil
		}
		return fmt.Errorf("migrate up: %w", err)
	}
	newVersion, _, _ := m.Version()
	log.Info().Str("module", "store.postgres").Uint("version", newVersion).Msg("schema migrated")
	return nil
}
