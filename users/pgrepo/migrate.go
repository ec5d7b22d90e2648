package pgrepo

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	migrationsDir   = "migrations"
	migrationsTable = "users_schema_version"
)

// Migrate applies the embedded goose migrations that have not run yet.
func (r *PgUserRepo) Migrate(ctx context.Context) error {
	// goose works on database/sql, so bridge the pool
	db := stdlib.OpenDBFromPool(r.pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.Err(err).Msg("failed to close migration connection")
		}
	}()

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{logger: log.With().Str("component", "migrate").Logger()})
	goose.SetTableName(migrationsTable)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("[PgUserRepo Migrate] %w", err)
	}
	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("[PgUserRepo Migrate] failed to apply migrations: %w", err)
	}
	return nil
}

// gooseLogger routes goose's Printf style output through zerolog.
type gooseLogger struct {
	logger zerolog.Logger
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error().Msgf(format, v...)
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Info().Msgf(format, v...)
}
