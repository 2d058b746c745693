package telemetry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/teamplay/go/internal/models"
)

type DispatcherConfig struct {
	BufferSize   int
	MaxRetries   int
	RetryDelay   time.Duration
	WriteTimeout time.Duration
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		BufferSize:   256,
		MaxRetries:   3,
		RetryDelay:   200 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
}

// Dispatcher buffers events and writes each one to every sink from a single
// worker goroutine. Record never blocks; events are dropped when the buffer
// is full.
type Dispatcher struct {
	sinks   []Sink
	config  DispatcherConfig
	metrics MetricsCollector
	events  chan models.TelemetryEvent
	dropped atomic.Int64

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewDispatcher(cfg DispatcherConfig, metrics MetricsCollector, sinks ...Sink) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultDispatcherConfig().BufferSize
	}
	if metrics == nil {
		metrics = NoOpMetricsCollector{}
	}
	return &Dispatcher{
		sinks:    sinks,
		config:   cfg,
		metrics:  metrics,
		events:   make(chan models.TelemetryEvent, cfg.BufferSize),
		stopChan: make(chan struct{}),
	}
}

func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("telemetry dispatcher already running")
	}
	d.running = true
	d.mu.Unlock()

	d.wg.Add(1)
	go d.run(context.WithoutCancel(ctx), ctx.Done())

	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, s.Name())
	}
	log.Info().
		Strs("sinks", names).
		Int("buffer_size", d.config.BufferSize).
		Msg("telemetry dispatcher started")

	return nil
}

// Stop waits for every buffered event to be written, then returns.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("telemetry dispatcher not running")
	}
	d.running = false
	d.mu.Unlock()

	close(d.stopChan)
	d.wg.Wait()

	// The worker may have exited on context cancellation before events
	// recorded during shutdown were consumed.
	d.drain(context.Background())

	log.Info().Int64("dropped", d.dropped.Load()).Msg("telemetry dispatcher stopped")
	return nil
}

// Record queues ev for every sink.
func (d *Dispatcher) Record(ev models.TelemetryEvent) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	select {
	case d.events <- ev:
	default:
		d.dropped.Add(1)
		log.Warn().
			Str("action", ev.Action).
			Str("user", ev.User).
			Msg("telemetry buffer full, dropping event")
	}
}

// Dropped returns how many events Record discarded.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

func (d *Dispatcher) run(ctx context.Context, done <-chan struct{}) {
	defer d.wg.Done()

	for {
		select {
		case <-done:
			d.drain(ctx)
			return
		case <-d.stopChan:
			d.drain(ctx)
			return
		case ev := <-d.events:
			d.dispatch(ctx, ev)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case ev := <-d.events:
			d.dispatch(ctx, ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev models.TelemetryEvent) {
	for _, sink := range d.sinks {
		err := d.saveWithRetry(ctx, sink, ev)
		d.metrics.RecordTelemetryWrite(sink.Name(), err == nil)
		if err != nil {
			log.Error().
				Err(err).
				Str("sink", sink.Name()).
				Str("action", ev.Action).
				Str("user", ev.User).
				Msg("failed to save telemetry event")
		}
	}
}

func (d *Dispatcher) saveWithRetry(ctx context.Context, sink Sink, ev models.TelemetryEvent) error {
	var lastErr error

	for attempt := 0; attempt <= d.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := d.save(ctx, sink, ev); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Str("sink", sink.Name()).
				Int("attempt", attempt+1).
				Msg("failed to save telemetry event, retrying")
			continue
		}

		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", d.config.MaxRetries+1, lastErr)
}

func (d *Dispatcher) save(ctx context.Context, sink Sink, ev models.TelemetryEvent) error {
	if d.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.WriteTimeout)
		defer cancel()
	}
	return sink.Save(ctx, ev)
}
