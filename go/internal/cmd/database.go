package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/teamplay/go/internal/telemetry"
)

// setupDatabase connects to Postgres and makes sure the telemetry table
// exists. The caller owns the returned pool.
func setupDatabase(ctx context.Context, dsn string) (*pgxpool.Pool, *telemetry.PostgresRepository, error) {
	pool, err := telemetry.ConnectPostgres(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}

	repo := telemetry.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to prepare telemetry schema: %w", err)
	}

	log.Info().
		Str("database", pool.Config().ConnConfig.Database).
		Str("host", pool.Config().ConnConfig.Host).
		Msg("connected to telemetry database")
	return pool, repo, nil
}
