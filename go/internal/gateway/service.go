package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Coordinator is everything the gateway needs from the round coordinator.
type Coordinator interface {
	Game
	StateProvider
}

// Service is the game gateway: WebSocket command channel, event fan-out and
// the read-only HTTP API.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
}

// NewService wires the gateway around cm. The coordinator must already
// broadcast its own tick and resolution events through cm.
func NewService(cm *ConnectionManager, coordinator Coordinator, blocks BlockLister) *Service {
	commands := NewCommandService(coordinator, cm)
	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm, commands),
		stateHandler:      NewStateHandler(coordinator, blocks),
	}
}

// Start runs the broadcast loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting game gateway service")
	s.connectionManager.Start(ctx)
	log.Info().Msg("game gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and state HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("game gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
