package round

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/teamplay/go/internal/models"
)

// Config holds the game settings the coordinator starts with.
type Config struct {
	MaxTime          int
	PointsAwarded    int
	ProblemsPerBlock int

	// ClearPendingOnNavigate drops a requested but uncommitted resolution
	// whenever the position in the content tree changes.
	ClearPendingOnNavigate bool
}

func DefaultConfig() Config {
	return Config{
		MaxTime:          120,
		PointsAwarded:    100,
		ProblemsPerBlock: 5,
	}
}

// Catalog is the read-only content tree.
type Catalog interface {
	Block(i int) (models.Block, bool)
}

// Broadcaster receives the events the coordinator emits on its own. Both
// methods may be called while the countdown lock is held and must not block.
type Broadcaster interface {
	BroadcastTick(remaining int)
	BroadcastResolution(res models.GameResolution)
}

// ChatLogSink persists chat and tutorial snapshots.
type ChatLogSink interface {
	WriteChatLog(ctx context.Context, messages []models.Message) error
	WriteTutorialLog(ctx context.Context, tries int) error
}

// TelemetryRecorder accepts research events. Record must not block.
type TelemetryRecorder interface {
	Record(ev models.TelemetryEvent)
}

// MetricsCollector defines the interface for collecting game metrics
type MetricsCollector interface {
	RecordTick()
	RecordResolution(kind string, correct bool)
	SetScore(score int)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordTick()                   {}
func (NoOpMetricsCollector) RecordResolution(string, bool) {}
func (NoOpMetricsCollector) SetScore(int)                  {}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastTick(int)                         {}
func (nopBroadcaster) BroadcastResolution(models.GameResolution) {}

type nopRecorder struct{}

func (nopRecorder) Record(models.TelemetryEvent) {}

type nopChatLog struct{}

func (nopChatLog) WriteChatLog(context.Context, []models.Message) error { return nil }
func (nopChatLog) WriteTutorialLog(context.Context, int) error          { return nil }

type Option func(*Coordinator)

// WithClock replaces the real clock. Tests pass a clockwork.FakeClock.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

func WithMetrics(m MetricsCollector) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// Snapshot is the externally visible game state.
type Snapshot struct {
	ParticipantName *string              `json:"participantName"`
	ConfederateName *string              `json:"confederateName"`
	Live            bool                 `json:"live"`
	Score           int                  `json:"score"`
	BlockIndex      *int                 `json:"blockIndex"`
	ProblemIndex    *int                 `json:"problemIndex"`
	Remaining       int                  `json:"remaining"`
	MaxTime         int                  `json:"maxTime"`
	TimerRunning    bool                 `json:"timerRunning"`
	PointsAwarded   int                  `json:"pointsAwarded"`
	PendingKind     *string              `json:"pendingResolution"`
	Chimes          *models.ChimesConfig `json:"chimes"`
	MessageCount    int                  `json:"messageCount"`
}
