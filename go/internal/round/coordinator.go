// Package round sequences the session state, the countdown and the content
// catalog into the game protocol. The Coordinator is the only writer of the
// pending resolution and the only subscriber to the countdown.
package round

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/teamplay/go/internal/countdown"
	"github.com/mcdev12/teamplay/go/internal/models"
	"github.com/mcdev12/teamplay/go/internal/session"
)

const unknownUser = "Unknown"

type Coordinator struct {
	catalog     Catalog
	state       *session.State
	timer       *countdown.Countdown
	broadcaster Broadcaster
	chatLog     ChatLogSink
	telemetry   TelemetryRecorder
	metrics     MetricsCollector
	clock       clockwork.Clock

	problemsPerBlock       int
	clearPendingOnNavigate bool
	pointsAwarded          atomic.Int64
}

// NewCoordinator wires a fresh session and countdown. Nil collaborators are
// replaced by no-ops. It returns an error for a config the countdown cannot
// run with.
func NewCoordinator(
	catalog Catalog,
	broadcaster Broadcaster,
	chatLog ChatLogSink,
	telemetry TelemetryRecorder,
	cfg Config,
	opts ...Option,
) (*Coordinator, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if cfg.MaxTime <= 0 {
		return nil, fmt.Errorf("max time must be positive, got %d", cfg.MaxTime)
	}
	if cfg.ProblemsPerBlock < 1 {
		return nil, fmt.Errorf("problems per block must be at least 1, got %d", cfg.ProblemsPerBlock)
	}
	if cfg.PointsAwarded < 0 {
		return nil, fmt.Errorf("points awarded must not be negative, got %d", cfg.PointsAwarded)
	}

	c := &Coordinator{
		catalog:                catalog,
		state:                  session.NewState(),
		broadcaster:            broadcaster,
		chatLog:                chatLog,
		telemetry:              telemetry,
		metrics:                NoOpMetricsCollector{},
		clock:                  clockwork.NewRealClock(),
		problemsPerBlock:       cfg.ProblemsPerBlock,
		clearPendingOnNavigate: cfg.ClearPendingOnNavigate,
	}
	if c.broadcaster == nil {
		c.broadcaster = nopBroadcaster{}
	}
	if c.chatLog == nil {
		c.chatLog = nopChatLog{}
	}
	if c.telemetry == nil {
		c.telemetry = nopRecorder{}
	}
	for _, opt := range opts {
		opt(c)
	}
	c.pointsAwarded.Store(int64(cfg.PointsAwarded))
	c.timer = countdown.New(c.clock, cfg.MaxTime, timerObserver{c: c})

	return c, nil
}

// timerObserver keeps OnTick and OnExpiry off the Coordinator's public
// method set.
type timerObserver struct {
	c *Coordinator
}

func (o timerObserver) OnTick(remaining int) {
	o.c.metrics.RecordTick()
	o.c.broadcaster.BroadcastTick(remaining)
}

func (o timerObserver) OnExpiry() {
	o.c.commitResolution()
}

// commitResolution applies the pending resolution, or a timeout if none was
// requested. It runs inside the countdown's expiry notification.
func (c *Coordinator) commitResolution() {
	var (
		kind        models.ResolutionKind
		res         models.GameResolution
		user        string
		confederate *string
	)

	points := int(c.pointsAwarded.Load())
	c.state.Update(func(tx *session.Tx) {
		kind = models.ResolutionTimeoutNoPoints
		var answer *string
		if p, ok := tx.Pending(); ok {
			kind = p.Kind
			answer = p.Answer
		}

		res.IsAnswerCorrect = kind.AwardsPoints()
		if res.IsAnswerCorrect {
			res.PointsAwarded = points
			tx.AwardPoints(points)
		}
		// A timeout wipes whatever answer was typed in.
		if kind != models.ResolutionTimeoutNoPoints {
			res.TeamAnswer = answer
		}
		res.CurrentScore = tx.Score()
		tx.ClearPendingResolution()

		user = unknownUser
		if name := tx.ParticipantName(); name != nil {
			user = *name
		}
		confederate = tx.ConfederateName()
	})

	log.Info().
		Str("resolution", kind.String()).
		Bool("correct", res.IsAnswerCorrect).
		Int("points_awarded", res.PointsAwarded).
		Int("score", res.CurrentScore).
		Msg("round resolved")

	c.metrics.RecordResolution(kind.String(), res.IsAnswerCorrect)
	c.metrics.SetScore(res.CurrentScore)

	resolution := kind.String()
	c.telemetry.Record(models.TelemetryEvent{
		User:        user,
		Confederate: confederate,
		Action:      models.ActionGameResolved,
		Resolution:  &resolution,
		Timestamp:   c.clock.Now().UTC(),
	})
	c.broadcaster.BroadcastResolution(res)
}

// CurrentProblem returns the block at the current block index and the problem
// at the current problem index. The block is nil when the block index is unset
// or out of range. The problem is empty when either index is unusable.
func (c *Coordinator) CurrentProblem() (*models.Block, string) {
	pos := c.state.Position()
	if pos.BlockIndex == nil {
		return nil, ""
	}
	block, ok := c.catalog.Block(*pos.BlockIndex)
	if !ok {
		return nil, ""
	}
	if pos.ProblemIndex == nil {
		return &block, ""
	}
	problem, _ := block.Problem(*pos.ProblemIndex)
	return &block, problem
}

func (c *Coordinator) FirstBlock() (*models.Block, string) {
	c.state.FirstBlock()
	c.navigated("first_block")
	return c.CurrentProblem()
}

func (c *Coordinator) AdvanceBlock() (*models.Block, string) {
	c.state.AdvanceBlock()
	c.navigated("next_block")
	return c.CurrentProblem()
}

// AdvanceProblem records a "next problem" telemetry event, then moves to the
// next problem in the block, wrapping after the configured cycle length.
func (c *Coordinator) AdvanceProblem() (*models.Block, string) {
	c.telemetry.Record(models.TelemetryEvent{
		User:        c.participantOrUnknown(),
		Confederate: c.confederate(),
		Action:      models.ActionNextProblem,
		Timestamp:   c.clock.Now().UTC(),
	})

	c.state.AdvanceProblem(c.problemsPerBlock)
	c.navigated("next_problem")
	return c.CurrentProblem()
}

// SetSelection jumps to the given indices. Out-of-range values are stored and
// surface as "no current problem".
func (c *Coordinator) SetSelection(blockIndex, problemIndex int) (*models.Block, string) {
	c.state.SetSelection(blockIndex, problemIndex)
	c.navigated("set_selection")
	return c.CurrentProblem()
}

func (c *Coordinator) navigated(op string) {
	if c.clearPendingOnNavigate {
		c.state.ClearPendingResolution()
	}
	pos := c.state.Position()
	ev := log.Debug().Str("op", op)
	if pos.BlockIndex != nil {
		ev = ev.Int("block_index", *pos.BlockIndex)
	}
	if pos.ProblemIndex != nil {
		ev = ev.Int("problem_index", *pos.ProblemIndex)
	}
	ev.Msg("navigation")
}

func (c *Coordinator) StartGame() {
	c.state.Start()
	log.Info().Msg("game started")
}

func (c *Coordinator) StopGame() {
	c.state.Stop()
	log.Info().Msg("game stopped")
}

func (c *Coordinator) Live() bool {
	return c.state.Live()
}

// RequestResolution stores the decision for the current round. Nothing is
// scored until the countdown expires.
func (c *Coordinator) RequestResolution(kind models.ResolutionKind, teamAnswer *string) {
	c.state.SetPendingResolution(kind, teamAnswer)
	log.Debug().Str("resolution", kind.String()).Msg("resolution requested")
}

func (c *Coordinator) ResetScore() {
	c.state.ResetScore()
	c.metrics.SetScore(0)
}

func (c *Coordinator) Score() int {
	return c.state.Score()
}

// SetPointsAwarded changes the award for future correct resolutions. Negative
// values are ignored.
func (c *Coordinator) SetPointsAwarded(points int) bool {
	if points < 0 {
		log.Warn().Int("points", points).Msg("ignoring negative points award")
		return false
	}
	c.pointsAwarded.Store(int64(points))
	log.Info().Int("points", points).Msg("points awarded updated")
	return true
}

func (c *Coordinator) PointsAwarded() int {
	return int(c.pointsAwarded.Load())
}

func (c *Coordinator) StartTimer() {
	c.timer.Start()
}

func (c *Coordinator) StopTimer() {
	c.timer.Stop()
}

// ResetTimer rewinds the countdown to max and broadcasts the new value through
// the tick path.
func (c *Coordinator) ResetTimer() {
	c.timer.Reset()
}

// SetMaxTime stops the countdown and sets a new length. Non-positive values
// are ignored.
func (c *Coordinator) SetMaxTime(seconds int) bool {
	if err := c.timer.SetMax(seconds); err != nil {
		log.Warn().Int("seconds", seconds).Err(err).Msg("ignoring max time")
		return false
	}
	log.Info().Int("seconds", seconds).Msg("max time updated")
	return true
}

func (c *Coordinator) Remaining() int {
	return c.timer.Remaining()
}

func (c *Coordinator) MaxTime() int {
	return c.timer.Max()
}

func (c *Coordinator) TimerRunning() bool {
	return c.timer.Running()
}

func (c *Coordinator) SetParticipantName(name string) {
	c.state.SetParticipantName(name)
	log.Info().Str("participant", name).Msg("participant connected")
}

func (c *Coordinator) ParticipantName() (string, bool) {
	return c.state.ParticipantName()
}

func (c *Coordinator) SetConfederate(name string) {
	c.state.SetConfederateName(name)
}

func (c *Coordinator) ConfederateName() (string, bool) {
	return c.state.ConfederateName()
}

func (c *Coordinator) AddMessage(m models.Message) {
	if m.SentAt.IsZero() {
		m.SentAt = c.clock.Now().UTC()
	}
	c.state.AddMessage(m)
}

// ClearChat drains the message buffer and hands it to the chat log sink. The
// drained messages are returned even when the sink fails.
func (c *Coordinator) ClearChat(ctx context.Context) ([]models.Message, error) {
	messages := c.state.DrainMessages()
	if err := c.chatLog.WriteChatLog(ctx, messages); err != nil {
		return messages, fmt.Errorf("failed to write chat log: %w", err)
	}
	return messages, nil
}

func (c *Coordinator) TutorialDone(ctx context.Context, tries int) error {
	if err := c.chatLog.WriteTutorialLog(ctx, tries); err != nil {
		return fmt.Errorf("failed to write tutorial log: %w", err)
	}
	return nil
}

// RecordTelemetry stamps a client-reported event with the server time and
// forwards it.
func (c *Coordinator) RecordTelemetry(ev models.TelemetryEvent) {
	ev.Timestamp = c.clock.Now().UTC()
	c.telemetry.Record(ev)
}

func (c *Coordinator) SetChimes(cfg models.ChimesConfig) {
	c.state.SetChimes(cfg)
}

func (c *Coordinator) Chimes() (models.ChimesConfig, bool) {
	return c.state.Chimes()
}

// FullReset clears the session and rewinds a stopped countdown to max.
func (c *Coordinator) FullReset() {
	c.timer.Stop()
	c.state.FullReset()
	c.timer.Reset()
	c.metrics.SetScore(0)
	log.Info().Msg("session reset")
}

func (c *Coordinator) Snapshot() Snapshot {
	s := c.state.Snapshot()
	snap := Snapshot{
		ParticipantName: s.ParticipantName,
		ConfederateName: s.ConfederateName,
		Live:            s.Live,
		Score:           s.Score,
		BlockIndex:      s.Position.BlockIndex,
		ProblemIndex:    s.Position.ProblemIndex,
		Remaining:       c.timer.Remaining(),
		MaxTime:         c.timer.Max(),
		TimerRunning:    c.timer.Running(),
		PointsAwarded:   c.PointsAwarded(),
		Chimes:          s.Chimes,
		MessageCount:    s.MessageCount,
	}
	if s.Pending != nil {
		kind := s.Pending.Kind.String()
		snap.PendingKind = &kind
	}
	return snap
}

func (c *Coordinator) participantOrUnknown() string {
	if name, ok := c.state.ParticipantName(); ok {
		return name
	}
	return unknownUser
}

func (c *Coordinator) confederate() *string {
	if name, ok := c.state.ConfederateName(); ok {
		return &name
	}
	return nil
}
