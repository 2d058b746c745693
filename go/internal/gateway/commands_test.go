package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/teamplay/go/internal/catalog"
	"github.com/mcdev12/teamplay/go/internal/models"
	"github.com/mcdev12/teamplay/go/internal/round"
)

type sentEvent struct {
	event     *Event
	excludeID string
}

// recordingBroadcaster captures events instead of sending them.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []sentEvent
}

func (b *recordingBroadcaster) Broadcast(event *Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{event: event})
}

func (b *recordingBroadcaster) BroadcastExcept(connectionID string, event *Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{event: event, excludeID: connectionID})
}

func (b *recordingBroadcaster) BroadcastTick(remaining int) {
	ev, _ := NewEvent(EventTypeTimerUpdate, remaining)
	b.Broadcast(ev)
}

func (b *recordingBroadcaster) BroadcastResolution(res models.GameResolution) {
	ev, _ := NewEvent(EventTypeGameResolved, res)
	b.Broadcast(ev)
}

func (b *recordingBroadcaster) take() []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

type stubChatLog struct {
	err error
}

func (s stubChatLog) WriteChatLog(context.Context, []models.Message) error { return s.err }
func (s stubChatLog) WriteTutorialLog(context.Context, int) error          { return s.err }

type stubRecorder struct {
	mu     sync.Mutex
	events []models.TelemetryEvent
}

func (r *stubRecorder) Record(ev models.TelemetryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func testBlocks() []models.Block {
	return []models.Block{
		{Name: "Block 1", Problems: []string{"p1", "p2", "p3"}},
		{Name: "Block 2", Problems: []string{"p4"}},
	}
}

type commandEnv struct {
	service  *CommandService
	coord    *round.Coordinator
	bc       *recordingBroadcaster
	recorder *stubRecorder
}

func setupCommands(t *testing.T, chatLog round.ChatLogSink) *commandEnv {
	t.Helper()

	bc := &recordingBroadcaster{}
	recorder := &stubRecorder{}
	cfg := round.DefaultConfig()
	cfg.MaxTime = 3
	coord, err := round.NewCoordinator(
		catalog.NewStaticCatalog(testBlocks()),
		bc,
		chatLog,
		recorder,
		cfg,
		round.WithClock(clockwork.NewFakeClock()),
	)
	require.NoError(t, err)
	t.Cleanup(coord.StopTimer)

	return &commandEnv{
		service:  NewCommandService(coord, bc),
		coord:    coord,
		bc:       bc,
		recorder: recorder,
	}
}

func (env *commandEnv) run(t *testing.T, from *Connection, cmdType CommandType, data any) error {
	t.Helper()
	cmd := &ClientCommand{Type: cmdType}
	if data != nil {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		cmd.Data = raw
	}
	return env.service.HandleCommand(context.Background(), from, cmd)
}

func decodeData[T any](t *testing.T, ev *Event) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(ev.Data, &v))
	return v
}

func TestUnknownCommand(t *testing.T) {
	env := setupCommands(t, nil)
	err := env.run(t, nil, "Teleport", nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Empty(t, env.bc.take())
}

func TestInvalidPayload(t *testing.T) {
	env := setupCommands(t, nil)

	assert.ErrorIs(t, env.run(t, nil, CommandSetMaxTime, nil), ErrInvalidPayload)
	assert.ErrorIs(t, env.run(t, nil, CommandSetMaxTime, "soon"), ErrInvalidPayload)
	assert.ErrorIs(t, env.run(t, nil, CommandSetMaxTime, 0), ErrInvalidPayload)
	assert.ErrorIs(t, env.run(t, nil, CommandSetPointsAwarded, -1), ErrInvalidPayload)
	assert.Empty(t, env.bc.take())
}

func TestNavigationCommandsBroadcastProblemUpdate(t *testing.T) {
	env := setupCommands(t, nil)

	require.NoError(t, env.run(t, nil, CommandFirstBlock, nil))
	require.NoError(t, env.run(t, nil, CommandNextProblem, nil))
	require.NoError(t, env.run(t, nil, CommandNextBlock, nil))
	require.NoError(t, env.run(t, nil, CommandUpdateProblemSelection, ProblemSelectionPayload{BlockIndex: 5, ProblemIndex: 0}))

	events := env.bc.take()
	require.Len(t, events, 4)

	want := []ProblemUpdatePayload{
		{Block: &BlockPayload{Name: "Block 1"}, Problem: "p1"},
		{Block: &BlockPayload{Name: "Block 1"}, Problem: "p2"},
		{Block: &BlockPayload{Name: "Block 2"}, Problem: "p4"},
		{Block: nil, Problem: ""},
	}
	for i, sent := range events {
		assert.Equal(t, EventTypeProblemUpdate, sent.event.Type)
		assert.Equal(t, want[i], decodeData[ProblemUpdatePayload](t, sent.event))
	}

	require.Len(t, env.recorder.events, 1)
	assert.Equal(t, models.ActionNextProblem, env.recorder.events[0].Action)
}

func TestNullProblemUpdateWireFormat(t *testing.T) {
	env := setupCommands(t, nil)
	require.NoError(t, env.run(t, nil, CommandUpdateProblemSelection, ProblemSelectionPayload{BlockIndex: -1}))

	events := env.bc.take()
	require.Len(t, events, 1)
	assert.JSONEq(t, `{"block":null,"problem":""}`, string(events[0].event.Data))
}

func TestSetGameResolution(t *testing.T) {
	env := setupCommands(t, nil)

	t.Run("valid kind stores pending and echoes answer", func(t *testing.T) {
		answer := "42"
		err := env.run(t, nil, CommandSetGameResolution, SetGameResolutionPayload{GameResolutionType: "AP", TeamAnswer: &answer})
		require.NoError(t, err)

		snap := env.coord.Snapshot()
		require.NotNil(t, snap.PendingKind)
		assert.Equal(t, "AP", *snap.PendingKind)

		events := env.bc.take()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeSetAnswer, events[0].event.Type)
		assert.Equal(t, "42", decodeData[string](t, events[0].event))
	})

	t.Run("nil answer echoes empty string", func(t *testing.T) {
		err := env.run(t, nil, CommandSetGameResolution, SetGameResolutionPayload{GameResolutionType: "delegatedNoPoints"})
		require.NoError(t, err)
		assert.Equal(t, "DNP", *env.coord.Snapshot().PendingKind)

		events := env.bc.take()
		require.Len(t, events, 1)
		assert.Equal(t, "", decodeData[string](t, events[0].event))
	})

	t.Run("unknown kind is dropped", func(t *testing.T) {
		err := env.run(t, nil, CommandSetGameResolution, SetGameResolutionPayload{GameResolutionType: "XYZ"})
		require.NoError(t, err)
		assert.Equal(t, "DNP", *env.coord.Snapshot().PendingKind)
		assert.Empty(t, env.bc.take())
	})
}

func TestTypingExcludesSender(t *testing.T) {
	env := setupCommands(t, nil)
	from := &Connection{ID: "conn-1"}

	require.NoError(t, env.run(t, from, CommandTyping, "P01"))

	events := env.bc.take()
	require.Len(t, events, 1)
	assert.Equal(t, "conn-1", events[0].excludeID)
	assert.Equal(t, EventTypeUserTyping, events[0].event.Type)
	assert.Equal(t, "P01", decodeData[string](t, events[0].event))
}

func TestChatCommands(t *testing.T) {
	env := setupCommands(t, stubChatLog{err: errors.New("disk full")})

	require.NoError(t, env.run(t, nil, CommandSendMessage, ChatMessagePayload{User: "P01", Text: "hello"}))
	assert.Equal(t, 1, env.coord.Snapshot().MessageCount)

	err := env.run(t, nil, CommandClearChat, nil)
	assert.ErrorContains(t, err, "disk full")
	assert.Zero(t, env.coord.Snapshot().MessageCount)

	events := env.bc.take()
	require.Len(t, events, 2)
	assert.Equal(t, EventTypeReceiveMessage, events[0].event.Type)
	assert.Equal(t, ChatMessagePayload{User: "P01", Text: "hello"}, decodeData[ChatMessagePayload](t, events[0].event))
	assert.Equal(t, EventTypeChatCleared, events[1].event.Type)
	assert.Equal(t, "null", string(events[1].event.Data))
}

func TestGameControlCommands(t *testing.T) {
	env := setupCommands(t, nil)

	require.NoError(t, env.run(t, nil, CommandStartGame, nil))
	assert.True(t, env.coord.Live())
	require.NoError(t, env.run(t, nil, CommandStopGame, nil))
	assert.False(t, env.coord.Live())

	require.NoError(t, env.run(t, nil, CommandSetMaxTime, 45))
	assert.Equal(t, 45, env.coord.MaxTime())

	require.NoError(t, env.run(t, nil, CommandStartTimer, nil))
	assert.True(t, env.coord.TimerRunning())
	require.NoError(t, env.run(t, nil, CommandStopTimer, nil))
	assert.False(t, env.coord.TimerRunning())
	require.NoError(t, env.run(t, nil, CommandResetTimer, nil))

	require.NoError(t, env.run(t, nil, CommandSetPointsAwarded, 10))
	assert.Equal(t, 10, env.coord.PointsAwarded())
	require.NoError(t, env.run(t, nil, CommandResetPoints, nil))

	var types []EventType
	for _, sent := range env.bc.take() {
		types = append(types, sent.event.Type)
	}
	assert.Equal(t, []EventType{
		EventTypeStatusUpdate,
		EventTypeStatusUpdate,
		EventTypeTimerUpdate, // SetMaxTime
		EventTypeTimerUpdate, // ResetTimer through the countdown
		EventTypePointsUpdate,
	}, types)
}

func TestAnswerAndModalCommands(t *testing.T) {
	env := setupCommands(t, nil)

	require.NoError(t, env.run(t, nil, CommandSetAnswer, "42"))
	require.NoError(t, env.run(t, nil, CommandClearAnswer, nil))
	require.NoError(t, env.run(t, nil, CommandSetConfederate, "Alex"))
	require.NoError(t, env.run(t, nil, CommandBlockFinished, nil))
	require.NoError(t, env.run(t, nil, CommandGameEnded, nil))

	events := env.bc.take()
	require.Len(t, events, 5)
	assert.Equal(t, "42", decodeData[string](t, events[0].event))
	assert.Equal(t, "", decodeData[string](t, events[1].event))
	assert.Equal(t, EventTypeNewConfederate, events[2].event.Type)
	assert.Equal(t, "Alex", decodeData[string](t, events[2].event))
	assert.Equal(t, "", decodeData[string](t, events[3].event))
	assert.Equal(t, EventTypeShowEndModal, events[4].event.Type)

	name, ok := env.coord.ConfederateName()
	assert.True(t, ok)
	assert.Equal(t, "Alex", name)
}

func TestChimesCommands(t *testing.T) {
	env := setupCommands(t, nil)

	require.NoError(t, env.run(t, nil, CommandGetChimes, nil))
	assert.Empty(t, env.bc.take())

	chimes := models.ChimesConfig{MessageSent: true, Timer: true}
	require.NoError(t, env.run(t, nil, CommandSetChimes, chimes))
	require.NoError(t, env.run(t, nil, CommandGetChimes, nil))

	events := env.bc.take()
	require.Len(t, events, 2)
	for _, sent := range events {
		assert.Equal(t, EventTypeChimesUpdated, sent.event.Type)
		assert.Equal(t, chimes, decodeData[models.ChimesConfig](t, sent.event))
	}
}

func TestTelemetryAndTutorialCommands(t *testing.T) {
	env := setupCommands(t, nil)

	x := 10.5
	require.NoError(t, env.run(t, nil, CommandTelemetryEvent, TelemetryEventPayload{User: "P01", Action: "click", X: &x}))
	require.Len(t, env.recorder.events, 1)
	assert.Equal(t, "click", env.recorder.events[0].Action)
	assert.Equal(t, 10.5, *env.recorder.events[0].X)

	require.NoError(t, env.run(t, nil, CommandTutorialDone, 3))
	events := env.bc.take()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeTutorialDone, events[0].event.Type)
	assert.Equal(t, 3, decodeData[int](t, events[0].event))
}

func TestResetSession(t *testing.T) {
	env := setupCommands(t, nil)

	require.NoError(t, env.run(t, nil, CommandSetParticipantName, "P01"))
	require.NoError(t, env.run(t, nil, CommandFirstBlock, nil))
	require.NoError(t, env.run(t, nil, CommandStartGame, nil))
	env.bc.take()

	require.NoError(t, env.run(t, nil, CommandResetSession, nil))
	_, ok := env.coord.ParticipantName()
	assert.False(t, ok)
	assert.False(t, env.coord.Live())

	var types []EventType
	for _, sent := range env.bc.take() {
		types = append(types, sent.event.Type)
	}
	assert.Equal(t, []EventType{
		EventTypeTimerUpdate,
		EventTypeStatusUpdate,
		EventTypePointsUpdate,
		EventTypeProblemUpdate,
	}, types)
}
