package gateway

import (
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/teamplay/go/internal/models"
)

// BroadcastTick sends a TimerUpdate to every connection.
func (cm *ConnectionManager) BroadcastTick(remaining int) {
	cm.emit(EventTypeTimerUpdate, remaining)
}

// BroadcastResolution sends a GameResolved to every connection.
func (cm *ConnectionManager) BroadcastResolution(res models.GameResolution) {
	cm.emit(EventTypeGameResolved, res)
}

func (cm *ConnectionManager) emit(eventType EventType, payload any) {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build event")
		return
	}
	cm.Broadcast(event)
}
