package main

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/teamplay/go/internal/catalog"
	"github.com/mcdev12/teamplay/go/internal/config"
	"github.com/mcdev12/teamplay/go/internal/gateway"
	"github.com/mcdev12/teamplay/go/internal/metrics"
	"github.com/mcdev12/teamplay/go/internal/round"
	"github.com/mcdev12/teamplay/go/internal/telemetry"
)

type Services struct {
	Catalog     *catalog.Catalog
	Metrics     *metrics.Prometheus
	Telemetry   *telemetry.Dispatcher
	Coordinator *round.Coordinator
	Gateway     *gateway.Service

	closers []func()
}

// Close releases external connections in reverse order of creation.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func setupServices(ctx context.Context, cfg config.Config) (*Services, error) {
	// Wire up dependency injection chain
	// Sinks → Telemetry dispatcher → Coordinator → Gateway
	s := &Services{}
	clock := clockwork.NewRealClock()

	s.Catalog = catalog.NewCatalog(catalog.NewFileRepository(cfg.BlocksPath))
	s.Catalog.Load(ctx)

	s.Metrics = metrics.NewPrometheus()

	sinks, err := s.setupTelemetrySinks(ctx, cfg, clock)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Telemetry = telemetry.NewDispatcher(cfg.Dispatcher(), s.Metrics, sinks...)

	chatLog, err := telemetry.NewChatLogRepository(cfg.LogPath, clock)
	if err != nil {
		s.Close()
		return nil, err
	}

	connConfig := gateway.DefaultConnectionConfig()
	connConfig.PingInterval = cfg.WSPingInterval
	if connConfig.ReadTimeout <= connConfig.PingInterval {
		connConfig.ReadTimeout = 2 * connConfig.PingInterval
	}
	connConfig.CheckOrigin = gateway.OriginChecker(cfg.CORSAllowedOrigins)
	connections := gateway.NewConnectionManager(connConfig, s.Metrics)

	s.Coordinator, err = round.NewCoordinator(
		s.Catalog,
		connections,
		chatLog,
		s.Telemetry,
		cfg.Round(),
		round.WithClock(clock),
		round.WithMetrics(s.Metrics),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create round coordinator: %w", err)
	}

	s.Gateway = gateway.NewService(connections, s.Coordinator, s.Catalog)
	return s, nil
}

func (s *Services) setupTelemetrySinks(ctx context.Context, cfg config.Config, clock clockwork.Clock) ([]telemetry.Sink, error) {
	csvRepo, err := telemetry.NewCSVRepository(cfg.LogPath, clock)
	if err != nil {
		return nil, err
	}
	sinks := []telemetry.Sink{csvRepo}

	if dsn := cfg.DatabaseDSN(); dsn != "" {
		pool, repo, err := setupDatabase(ctx, dsn)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		sinks = append(sinks, repo)
	}

	if cfg.NATSURL != "" {
		publisher, err := telemetry.NewJetStreamPublisher(cfg.JetStream())
		if err != nil {
			return nil, fmt.Errorf("failed to create jetstream publisher: %w", err)
		}
		s.closers = append(s.closers, func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("failed to drain nats connection")
			}
		})
		sinks = append(sinks, publisher)
	}

	return sinks, nil
}
