package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope for every server-to-client message.
type Event struct {
	ID        string          `json:"id"`        // Event UUID
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType represents the type of game event
type EventType string

const (
	EventTypeTimerUpdate    EventType = "TimerUpdate"
	EventTypeGameResolved   EventType = "GameResolved"
	EventTypeProblemUpdate  EventType = "ProblemUpdate"
	EventTypeReceiveMessage EventType = "ReceiveMessage"
	EventTypeUserTyping     EventType = "UserTyping"
	EventTypeChatCleared    EventType = "ChatCleared"
	EventTypeNewConfederate EventType = "NewConfederate"
	EventTypeStatusUpdate   EventType = "StatusUpdate"
	EventTypeSetAnswer      EventType = "SetAnswer"
	EventTypePointsUpdate   EventType = "PointsUpdate"
	EventTypeChimesUpdated  EventType = "ChimesUpdated"
	EventTypeTutorialDone   EventType = "TutorialDone"
	EventTypeShowEndModal   EventType = "ShowEndModal"
	EventTypeError          EventType = "Error"
)

// NewEvent marshals payload into a fresh event. A nil payload becomes JSON null.
func NewEvent(eventType EventType, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// ClientCommand is the envelope for every client-to-server message.
type ClientCommand struct {
	Type CommandType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CommandType names a client action
type CommandType string

const (
	CommandSetParticipantName     CommandType = "SetParticipantName"
	CommandSetConfederate         CommandType = "SetConfederate"
	CommandSendMessage            CommandType = "SendMessage"
	CommandTyping                 CommandType = "Typing"
	CommandClearChat              CommandType = "ClearChat"
	CommandUpdateProblemSelection CommandType = "UpdateProblemSelection"
	CommandFirstBlock             CommandType = "FirstBlock"
	CommandNextBlock              CommandType = "NextBlock"
	CommandNextProblem            CommandType = "NextProblem"
	CommandTutorialProblem        CommandType = "TutorialProblem"
	CommandStartTimer             CommandType = "StartTimer"
	CommandStopTimer              CommandType = "StopTimer"
	CommandResetTimer             CommandType = "ResetTimer"
	CommandSetMaxTime             CommandType = "SetMaxTime"
	CommandStartGame              CommandType = "StartGame"
	CommandStopGame               CommandType = "StopGame"
	CommandSetGameResolution      CommandType = "SetGameResolution"
	CommandResetPoints            CommandType = "ResetPoints"
	CommandSetPointsAwarded       CommandType = "SetPointsAwarded"
	CommandClearAnswer            CommandType = "ClearAnswer"
	CommandSetAnswer              CommandType = "SetAnswer"
	CommandBlockFinished          CommandType = "BlockFinished"
	CommandGameEnded              CommandType = "GameEnded"
	CommandSetChimes              CommandType = "SetChimes"
	CommandGetChimes              CommandType = "GetChimes"
	CommandTelemetryEvent         CommandType = "TelemetryEvent"
	CommandTutorialDone           CommandType = "TutorialDone"
	CommandResetSession           CommandType = "ResetSession"
)

// ChatMessagePayload is both the SendMessage argument and the ReceiveMessage body.
type ChatMessagePayload struct {
	User      string  `json:"user"`
	Text      string  `json:"text"`
	Timestamp *string `json:"timestamp,omitempty"`
}

// ProblemSelectionPayload is the UpdateProblemSelection argument.
type ProblemSelectionPayload struct {
	BlockIndex   int `json:"blockIndex"`
	ProblemIndex int `json:"problemIndex"`
}

type BlockPayload struct {
	Name string `json:"name"`
}

// ProblemUpdatePayload is the ProblemUpdate body. Block is null and Problem
// empty when there is no current problem.
type ProblemUpdatePayload struct {
	Block   *BlockPayload `json:"block"`
	Problem string        `json:"problem"`
}

// SetGameResolutionPayload is the SetGameResolution argument.
type SetGameResolutionPayload struct {
	GameResolutionType string  `json:"gameResolutionType"`
	TeamAnswer         *string `json:"teamAnswer"`
}

// TelemetryEventPayload is the TelemetryEvent argument. The server assigns
// the timestamp.
type TelemetryEventPayload struct {
	User        string   `json:"user"`
	Confederate *string  `json:"confederate"`
	Action      string   `json:"action"`
	Text        *string  `json:"text"`
	X           *float64 `json:"x"`
	Y           *float64 `json:"y"`
	Resolution  *string  `json:"resolution"`
}

type ErrorPayload struct {
	Command CommandType `json:"command,omitempty"`
	Message string      `json:"message"`
}
