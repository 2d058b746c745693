package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/teamplay/go/internal/round"
	"github.com/mcdev12/teamplay/go/internal/telemetry"
)

var (
	ErrInvalidMaxTime          = errors.New("GAME_MAX_TIME must be positive")
	ErrInvalidPointsAwarded    = errors.New("GAME_POINTS_AWARDED must not be negative")
	ErrInvalidProblemsPerBlock = errors.New("GAME_PROBLEMS_PER_BLOCK must be at least 1")
)

// Config is the process configuration, read from the environment.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":5000"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Game GameConfig

	BlocksPath         string        `env:"BLOCKS_PATH" envDefault:"resources/blocks.json"`
	LogPath            string        `env:"LOG_PATH" envDefault:"logs"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	WSPingInterval     time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`

	DatabaseURL string `env:"DATABASE_URL"`
	DB          DBConfig

	NATSURL           string `env:"NATS_URL"`
	NATSStream        string `env:"NATS_STREAM" envDefault:"GAME_EVENTS"`
	NATSSubjectPrefix string `env:"NATS_SUBJECT_PREFIX" envDefault:"game.events"`

	TelemetryBuffer int `env:"TELEMETRY_BUFFER" envDefault:"256"`
}

// GameConfig holds the round rules.
type GameConfig struct {
	MaxTime                int  `env:"GAME_MAX_TIME" envDefault:"120"`
	PointsAwarded          int  `env:"GAME_POINTS_AWARDED" envDefault:"100"`
	ProblemsPerBlock       int  `env:"GAME_PROBLEMS_PER_BLOCK" envDefault:"5"`
	ClearPendingOnNavigate bool `env:"GAME_CLEAR_PENDING_ON_NAVIGATE" envDefault:"false"`
}

// DBConfig holds discrete Postgres connection settings. They are only used
// when DATABASE_URL is empty and DB_HOST is set.
type DBConfig struct {
	Host     string `env:"DB_HOST"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Database string `env:"DB_NAME" envDefault:"teamplay"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// DSN returns the Postgres connection URL.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// Load reads .env if present, then parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	return Parse()
}

// Parse reads the environment without touching .env.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Game.MaxTime <= 0 {
		errs = append(errs, ErrInvalidMaxTime)
	}
	if c.Game.PointsAwarded < 0 {
		errs = append(errs, ErrInvalidPointsAwarded)
	}
	if c.Game.ProblemsPerBlock < 1 {
		errs = append(errs, ErrInvalidProblemsPerBlock)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	return errors.Join(errs...)
}

// Level returns the configured log level, falling back to info.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// DatabaseDSN returns the Postgres DSN, or "" when Postgres telemetry is off.
func (c Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	if c.DB.Host != "" {
		return c.DB.DSN()
	}
	return ""
}

func (c Config) Round() round.Config {
	return round.Config{
		MaxTime:                c.Game.MaxTime,
		PointsAwarded:          c.Game.PointsAwarded,
		ProblemsPerBlock:       c.Game.ProblemsPerBlock,
		ClearPendingOnNavigate: c.Game.ClearPendingOnNavigate,
	}
}

func (c Config) Dispatcher() telemetry.DispatcherConfig {
	cfg := telemetry.DefaultDispatcherConfig()
	if c.TelemetryBuffer > 0 {
		cfg.BufferSize = c.TelemetryBuffer
	}
	return cfg
}

func (c Config) JetStream() telemetry.JetStreamConfig {
	cfg := telemetry.DefaultJetStreamConfig()
	cfg.URL = c.NATSURL
	cfg.StreamName = c.NATSStream
	cfg.SubjectPrefix = c.NATSSubjectPrefix
	return cfg
}
