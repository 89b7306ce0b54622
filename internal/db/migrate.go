package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations applies the bundled schema for the pool's dialect. The
// schema mirrors the columns this service reads and writes; against a
// production Mailu database the mail software owns the schema and this
// is not run.
func RunMigrations(ctx context.Context, pool *Pool, logger zerolog.Logger) error {
	dir, err := fs.Sub(migrationsFS, "migrations/"+pool.Dialect().String())
	if err != nil {
		return fmt.Errorf("open %s migrations: %w", pool.Dialect(), err)
	}

	provider, err := goose.NewProvider(pool.Dialect().gooseDialect(), pool.DB(), dir)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	for _, r := range results {
		logger.Info().
			Int64("version", r.Source.Version).
			Str("file", r.Source.Path).
			Dur("duration", r.Duration).
			Msg("applied migration")
	}

	return nil
}
