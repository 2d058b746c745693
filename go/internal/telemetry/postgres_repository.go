package telemetry

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/teamplay/go/internal/models"
)

const createTelemetryTable = `
	CREATE TABLE IF NOT EXISTS telemetry_events (
		id          BIGSERIAL PRIMARY KEY,
		owner       TEXT NOT NULL,
		username    TEXT NOT NULL,
		confederate TEXT,
		action      TEXT NOT NULL,
		text        TEXT,
		x           DOUBLE PRECISION,
		y           DOUBLE PRECISION,
		resolution  TEXT,
		occurred_at TIMESTAMPTZ NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

const insertTelemetryEvent = `
	INSERT INTO telemetry_events (owner, username, confederate, action, text, x, y, resolution, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// Execer is the part of *pgxpool.Pool the repository uses.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores telemetry events in the telemetry_events table.
type PostgresRepository struct {
	db Execer
}

func NewPostgresRepository(db Execer) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ConnectPostgres opens a pool and checks it with a ping.
func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func (r *PostgresRepository) Name() string {
	return "postgres"
}

// EnsureSchema creates the telemetry table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createTelemetryTable); err != nil {
		return fmt.Errorf("failed to create telemetry table: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Save(ctx context.Context, ev models.TelemetryEvent) error {
	_, err := r.db.Exec(ctx, insertTelemetryEvent,
		ev.Owner(),
		ev.User,
		ev.Confederate,
		ev.Action,
		ev.Text,
		ev.X,
		ev.Y,
		ev.Resolution,
		ev.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert telemetry event: %w", err)
	}
	return nil
}
