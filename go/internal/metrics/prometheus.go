// Package metrics exposes game and transport metrics through Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "teamplay"

// Prometheus implements the collectors used by round, gateway and telemetry.
type Prometheus struct {
	registry *prometheus.Registry

	timerTicks      prometheus.Counter
	resolutions     *prometheus.CounterVec
	score           prometheus.Gauge
	wsConnections   prometheus.Gauge
	telemetryWrites *prometheus.CounterVec
}

// NewPrometheus registers every series on a private registry together with
// the Go runtime and process collectors.
func NewPrometheus() *Prometheus {
	m := &Prometheus{
		registry: prometheus.NewRegistry(),
		timerTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timer_ticks_total",
			Help:      "Countdown notifications sent to clients",
		}),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Rounds committed at countdown expiry",
			},
			[]string{"kind", "correct"},
		),
		score: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "score",
			Help:      "Current team score",
		}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Open websocket connections",
		}),
		telemetryWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "telemetry_writes_total",
				Help:      "Telemetry events handed to each sink",
			},
			[]string{"sink", "result"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.timerTicks,
		m.resolutions,
		m.score,
		m.wsConnections,
		m.telemetryWrites,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Prometheus) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Prometheus) RecordTick() {
	m.timerTicks.Inc()
}

func (m *Prometheus) RecordResolution(kind string, correct bool) {
	m.resolutions.WithLabelValues(kind, strconv.FormatBool(correct)).Inc()
}

func (m *Prometheus) SetScore(score int) {
	m.score.Set(float64(score))
}

func (m *Prometheus) ConnectionOpened() {
	m.wsConnections.Inc()
}

func (m *Prometheus) ConnectionClosed() {
	m.wsConnections.Dec()
}

func (m *Prometheus) RecordTelemetryWrite(sink string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.telemetryWrites.WithLabelValues(sink, result).Inc()
}
