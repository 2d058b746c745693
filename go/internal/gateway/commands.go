package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/teamplay/go/internal/models"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidPayload = errors.New("invalid command payload")
)

// Game is the set of coordinator operations reachable from clients.
type Game interface {
	SetParticipantName(name string)
	SetConfederate(name string)
	AddMessage(m models.Message)
	ClearChat(ctx context.Context) ([]models.Message, error)

	CurrentProblem() (*models.Block, string)
	FirstBlock() (*models.Block, string)
	AdvanceBlock() (*models.Block, string)
	AdvanceProblem() (*models.Block, string)
	SetSelection(blockIndex, problemIndex int) (*models.Block, string)

	StartTimer()
	StopTimer()
	ResetTimer()
	SetMaxTime(seconds int) bool

	StartGame()
	StopGame()
	RequestResolution(kind models.ResolutionKind, teamAnswer *string)
	ResetScore()
	SetPointsAwarded(points int) bool

	SetChimes(cfg models.ChimesConfig)
	Chimes() (models.ChimesConfig, bool)
	RecordTelemetry(ev models.TelemetryEvent)
	TutorialDone(ctx context.Context, tries int) error
	FullReset()
}

// EventBroadcaster fans events out to connected clients.
type EventBroadcaster interface {
	Broadcast(event *Event)
	BroadcastExcept(connectionID string, event *Event)
}

// CommandService translates client commands into game operations and the
// events that announce them.
type CommandService struct {
	game        Game
	broadcaster EventBroadcaster
	handlers    map[CommandType]commandFunc
}

type commandFunc func(ctx context.Context, from *Connection, data json.RawMessage) error

func NewCommandService(game Game, broadcaster EventBroadcaster) *CommandService {
	s := &CommandService{game: game, broadcaster: broadcaster}
	s.handlers = map[CommandType]commandFunc{
		CommandSetParticipantName:     s.setParticipantName,
		CommandSetConfederate:         s.setConfederate,
		CommandSendMessage:            s.sendMessage,
		CommandTyping:                 s.typing,
		CommandClearChat:              s.clearChat,
		CommandUpdateProblemSelection: s.updateProblemSelection,
		CommandFirstBlock:             s.navigate(game.FirstBlock),
		CommandNextBlock:              s.navigate(game.AdvanceBlock),
		CommandNextProblem:            s.navigate(game.AdvanceProblem),
		CommandTutorialProblem:        s.tutorialProblem,
		CommandStartTimer:             s.simple(game.StartTimer),
		CommandStopTimer:              s.simple(game.StopTimer),
		CommandResetTimer:             s.simple(game.ResetTimer),
		CommandSetMaxTime:             s.setMaxTime,
		CommandStartGame:              s.setLive(true),
		CommandStopGame:               s.setLive(false),
		CommandSetGameResolution:      s.setGameResolution,
		CommandResetPoints:            s.resetPoints,
		CommandSetPointsAwarded:       s.setPointsAwarded,
		CommandClearAnswer:            s.clearAnswer,
		CommandSetAnswer:              s.setAnswer,
		CommandBlockFinished:          s.blockFinished,
		CommandGameEnded:              s.gameEnded,
		CommandSetChimes:              s.setChimes,
		CommandGetChimes:              s.getChimes,
		CommandTelemetryEvent:         s.telemetryEvent,
		CommandTutorialDone:           s.tutorialDone,
		CommandResetSession:           s.resetSession,
	}
	return s
}

// HandleCommand implements CommandHandler.
func (s *CommandService) HandleCommand(ctx context.Context, from *Connection, cmd *ClientCommand) error {
	handler, ok := s.handlers[cmd.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Type)
	}
	return handler(ctx, from, cmd.Data)
}

func decode[T any](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 {
		return v, fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return v, nil
}

func (s *CommandService) emit(eventType EventType, payload any) {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build event")
		return
	}
	s.broadcaster.Broadcast(event)
}

func (s *CommandService) emitProblem(block *models.Block, problem string) {
	payload := ProblemUpdatePayload{Problem: problem}
	if block != nil {
		payload.Block = &BlockPayload{Name: block.Name}
	}
	s.emit(EventTypeProblemUpdate, payload)
}

func (s *CommandService) simple(fn func()) commandFunc {
	return func(context.Context, *Connection, json.RawMessage) error {
		fn()
		return nil
	}
}

func (s *CommandService) navigate(fn func() (*models.Block, string)) commandFunc {
	return func(context.Context, *Connection, json.RawMessage) error {
		s.emitProblem(fn())
		return nil
	}
}

func (s *CommandService) setLive(live bool) commandFunc {
	return func(context.Context, *Connection, json.RawMessage) error {
		if live {
			s.game.StartGame()
		} else {
			s.game.StopGame()
		}
		s.emit(EventTypeStatusUpdate, live)
		return nil
	}
}

func (s *CommandService) setParticipantName(_ context.Context, _ *Connection, data json.RawMessage) error {
	name, err := decode[string](data)
	if err != nil {
		return err
	}
	s.game.SetParticipantName(name)
	return nil
}

func (s *CommandService) setConfederate(_ context.Context, _ *Connection, data json.RawMessage) error {
	name, err := decode[string](data)
	if err != nil {
		return err
	}
	s.game.SetConfederate(name)
	s.emit(EventTypeNewConfederate, name)
	return nil
}

func (s *CommandService) sendMessage(_ context.Context, _ *Connection, data json.RawMessage) error {
	msg, err := decode[ChatMessagePayload](data)
	if err != nil {
		return err
	}
	s.game.AddMessage(models.Message{User: msg.User, Text: msg.Text})
	s.emit(EventTypeReceiveMessage, msg)
	return nil
}

func (s *CommandService) typing(_ context.Context, from *Connection, data json.RawMessage) error {
	user, err := decode[string](data)
	if err != nil {
		return err
	}
	event, err := NewEvent(EventTypeUserTyping, user)
	if err != nil {
		return err
	}
	var exclude string
	if from != nil {
		exclude = from.ID
	}
	s.broadcaster.BroadcastExcept(exclude, event)
	return nil
}

// clearChat announces the cleared chat even when the log could not be saved;
// the buffer is empty either way.
func (s *CommandService) clearChat(ctx context.Context, _ *Connection, _ json.RawMessage) error {
	_, err := s.game.ClearChat(ctx)
	s.emit(EventTypeChatCleared, nil)
	return err
}

func (s *CommandService) updateProblemSelection(_ context.Context, _ *Connection, data json.RawMessage) error {
	sel, err := decode[ProblemSelectionPayload](data)
	if err != nil {
		return err
	}
	s.emitProblem(s.game.SetSelection(sel.BlockIndex, sel.ProblemIndex))
	return nil
}

func (s *CommandService) tutorialProblem(_ context.Context, _ *Connection, data json.RawMessage) error {
	update, err := decode[ProblemUpdatePayload](data)
	if err != nil {
		return err
	}
	s.emit(EventTypeProblemUpdate, update)
	return nil
}

func (s *CommandService) setMaxTime(_ context.Context, _ *Connection, data json.RawMessage) error {
	seconds, err := decode[int](data)
	if err != nil {
		return err
	}
	if !s.game.SetMaxTime(seconds) {
		return fmt.Errorf("%w: max time must be positive", ErrInvalidPayload)
	}
	s.emit(EventTypeTimerUpdate, seconds)
	return nil
}

// setGameResolution drops unknown resolution kinds without changing state.
func (s *CommandService) setGameResolution(_ context.Context, _ *Connection, data json.RawMessage) error {
	req, err := decode[SetGameResolutionPayload](data)
	if err != nil {
		return err
	}
	kind, ok := models.ParseResolutionKind(req.GameResolutionType)
	if !ok {
		log.Debug().Str("resolution", req.GameResolutionType).Msg("ignoring unknown resolution kind")
		return nil
	}
	s.game.RequestResolution(kind, req.TeamAnswer)

	answer := ""
	if req.TeamAnswer != nil {
		answer = *req.TeamAnswer
	}
	s.emit(EventTypeSetAnswer, answer)
	return nil
}

func (s *CommandService) resetPoints(context.Context, *Connection, json.RawMessage) error {
	s.game.ResetScore()
	s.emit(EventTypePointsUpdate, 0)
	return nil
}

func (s *CommandService) setPointsAwarded(_ context.Context, _ *Connection, data json.RawMessage) error {
	points, err := decode[int](data)
	if err != nil {
		return err
	}
	if !s.game.SetPointsAwarded(points) {
		return fmt.Errorf("%w: points must not be negative", ErrInvalidPayload)
	}
	return nil
}

func (s *CommandService) clearAnswer(context.Context, *Connection, json.RawMessage) error {
	s.emit(EventTypeSetAnswer, "")
	return nil
}

func (s *CommandService) setAnswer(_ context.Context, _ *Connection, data json.RawMessage) error {
	answer, err := decode[string](data)
	if err != nil {
		return err
	}
	s.emit(EventTypeSetAnswer, answer)
	return nil
}

func (s *CommandService) blockFinished(context.Context, *Connection, json.RawMessage) error {
	s.emit(EventTypeNewConfederate, "")
	return nil
}

func (s *CommandService) gameEnded(context.Context, *Connection, json.RawMessage) error {
	s.emit(EventTypeShowEndModal, nil)
	return nil
}

func (s *CommandService) setChimes(_ context.Context, _ *Connection, data json.RawMessage) error {
	chimes, err := decode[models.ChimesConfig](data)
	if err != nil {
		return err
	}
	s.game.SetChimes(chimes)
	s.emit(EventTypeChimesUpdated, chimes)
	return nil
}

func (s *CommandService) getChimes(context.Context, *Connection, json.RawMessage) error {
	chimes, ok := s.game.Chimes()
	if !ok {
		return nil
	}
	s.emit(EventTypeChimesUpdated, chimes)
	log.Info().
		Bool("message_sent", chimes.MessageSent).
		Bool("message_received", chimes.MessageReceived).
		Bool("timer", chimes.Timer).
		Msg("chimes config propagated")
	return nil
}

func (s *CommandService) telemetryEvent(_ context.Context, _ *Connection, data json.RawMessage) error {
	ev, err := decode[TelemetryEventPayload](data)
	if err != nil {
		return err
	}
	s.game.RecordTelemetry(models.TelemetryEvent{
		User:        ev.User,
		Confederate: ev.Confederate,
		Action:      ev.Action,
		Text:        ev.Text,
		X:           ev.X,
		Y:           ev.Y,
		Resolution:  ev.Resolution,
	})
	return nil
}

func (s *CommandService) tutorialDone(ctx context.Context, _ *Connection, data json.RawMessage) error {
	tries, err := decode[int](data)
	if err != nil {
		return err
	}
	if err := s.game.TutorialDone(ctx, tries); err != nil {
		return err
	}
	s.emit(EventTypeTutorialDone, tries)
	return nil
}

// resetSession clears every piece of session state and re-announces the
// defaults. The countdown announces its own reset through TimerUpdate.
func (s *CommandService) resetSession(context.Context, *Connection, json.RawMessage) error {
	s.game.FullReset()
	s.emit(EventTypeStatusUpdate, false)
	s.emit(EventTypePointsUpdate, 0)
	s.emitProblem(s.game.CurrentProblem())
	return nil
}
