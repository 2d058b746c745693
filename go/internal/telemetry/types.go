// Package telemetry moves research events out of the request path and into
// durable sinks: per-user CSV files, Postgres, and a JetStream stream.
package telemetry

import (
	"context"

	"github.com/mcdev12/teamplay/go/internal/models"
)

// Sink persists telemetry events. Save may be called from a single worker
// goroutine only.
type Sink interface {
	Name() string
	Save(ctx context.Context, ev models.TelemetryEvent) error
}

// MetricsCollector defines the interface for collecting telemetry metrics
type MetricsCollector interface {
	RecordTelemetryWrite(sink string, success bool)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordTelemetryWrite(string, bool) {}
