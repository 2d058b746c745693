package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/teamplay/go/internal/models"
	"github.com/mcdev12/teamplay/go/internal/round"
)

// StateProvider exposes the read side of the game to HTTP clients.
type StateProvider interface {
	Snapshot() round.Snapshot
	ParticipantName() (string, bool)
}

// BlockLister returns the content catalog in order.
type BlockLister interface {
	Blocks() []models.Block
}

// StateHandler handles HTTP requests for game state and content
type StateHandler struct {
	stateProvider StateProvider
	blocks        BlockLister
}

func NewStateHandler(provider StateProvider, blocks BlockLister) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
		blocks:        blocks,
	}
}

// HandleGetBlocks handles GET /api/blocks
func (h *StateHandler) HandleGetBlocks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	blocks := h.blocks.Blocks()
	if blocks == nil {
		blocks = []models.Block{}
	}
	writeJSON(w, blocks)
}

// HandleGetCurrentUser handles GET /api/currentUser. The body is the
// participant name as a JSON string, or null before anyone has joined.
func (h *StateHandler) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var name *string
	if n, ok := h.stateProvider.ParticipantName(); ok {
		name = &n
	}
	writeJSON(w, name)
}

// HandleGetState handles GET /api/state
func (h *StateHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, h.stateProvider.Snapshot())
}

// RegisterStateRoutes registers state-related routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/blocks", h.HandleGetBlocks)
	mux.HandleFunc("/api/currentUser", h.HandleGetCurrentUser)
	mux.HandleFunc("/api/state", h.HandleGetState)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
