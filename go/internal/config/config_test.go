package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, 120, cfg.Game.MaxTime)
	assert.Equal(t, 100, cfg.Game.PointsAwarded)
	assert.Equal(t, 5, cfg.Game.ProblemsPerBlock)
	assert.False(t, cfg.Game.ClearPendingOnNavigate)
	assert.Equal(t, "resources/blocks.json", cfg.BlocksPath)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.WSPingInterval)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
	assert.Empty(t, cfg.DatabaseDSN())
	assert.Empty(t, cfg.NATSURL)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":8081")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GAME_MAX_TIME", "45")
	t.Setenv("GAME_POINTS_AWARDED", "25")
	t.Setenv("GAME_PROBLEMS_PER_BLOCK", "3")
	t.Setenv("GAME_CLEAR_PENDING_ON_NAVIGATE", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("NATS_STREAM", "LAB")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)

	rc := cfg.Round()
	assert.Equal(t, 45, rc.MaxTime)
	assert.Equal(t, 25, rc.PointsAwarded)
	assert.Equal(t, 3, rc.ProblemsPerBlock)
	assert.True(t, rc.ClearPendingOnNavigate)

	js := cfg.JetStream()
	assert.Equal(t, "nats://localhost:4222", js.URL)
	assert.Equal(t, "LAB", js.StreamName)
	assert.Equal(t, "game.events", js.SubjectPrefix)
}

func TestParseRejectsInvalidGameRules(t *testing.T) {
	t.Setenv("GAME_MAX_TIME", "0")
	t.Setenv("GAME_POINTS_AWARDED", "-1")

	_, err := Parse()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidMaxTime)
	assert.ErrorIs(t, err, ErrInvalidPointsAwarded)
	assert.NotErrorIs(t, err, ErrInvalidProblemsPerBlock)
}

func TestParseRejectsBadLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")

	_, err := Parse()
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	t.Run("discrete settings", func(t *testing.T) {
		t.Setenv("DB_HOST", "db")
		t.Setenv("DB_PASSWORD", "secret")

		cfg, err := Parse()
		require.NoError(t, err)
		assert.Equal(t, "postgres://postgres:secret@db:5432/teamplay?sslmode=disable", cfg.DatabaseDSN())
	})

	t.Run("url wins", func(t *testing.T) {
		t.Setenv("DB_HOST", "db")
		t.Setenv("DATABASE_URL", "postgres://lab@pg/telemetry")

		cfg, err := Parse()
		require.NoError(t, err)
		assert.Equal(t, "postgres://lab@pg/telemetry", cfg.DatabaseDSN())
	})
}

func TestDispatcherBuffer(t *testing.T) {
	t.Setenv("TELEMETRY_BUFFER", "16")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Dispatcher().BufferSize)
}
