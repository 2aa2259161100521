package gateway

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mcdev12/auctionhouse/go/internal/auction/archive"
	"github.com/mcdev12/auctionhouse/go/internal/auction/session"
	"github.com/rs/zerolog/log"
)

// StateHandler serves read-only auction session state over HTTP,
// and archived results when an archive is configured.
type StateHandler struct {
	registry *session.Registry
	results  archive.Reader
}

const (
	defaultGamesLimit = 20
	maxGamesLimit     = 100
)

// NewStateHandler creates the handler. results may be nil.
func NewStateHandler(registry *session.Registry, results archive.Reader) *StateHandler {
	return &StateHandler{
		registry: registry,
		results:  results,
	}
}

// HandleListSessions handles GET /api/sessions
func (h *StateHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.Snapshots())
}

// HandleGetSession handles GET /api/sessions/{id}
func (h *StateHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	sess, ok := h.registry.Get(id)
	if !ok {
		log.Debug().Int("session_id", id).Msg("session not found")
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// HandleListLots handles GET /api/sessions/{id}/lots
func (h *StateHandler) HandleListLots(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	lots, err := h.results.ListLots(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int("session_id", id).Msg("failed to list archived lots")
		http.Error(w, "Failed to list lots", http.StatusInternalServerError)
		return
	}
	if lots == nil {
		lots = []archive.Lot{}
	}
	writeJSON(w, http.StatusOK, lots)
}

// HandleListGames handles GET /api/games?limit=N
func (h *StateHandler) HandleListGames(w http.ResponseWriter, r *http.Request) {
	limit := defaultGamesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxGamesLimit {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	games, err := h.results.ListGames(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list archived games")
		http.Error(w, "Failed to list games", http.StatusInternalServerError)
		return
	}
	if games == nil {
		games = []archive.Game{}
	}
	writeJSON(w, http.StatusOK, games)
}

func (h *StateHandler) RegisterStateRoutes(r chi.Router) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", h.HandleListSessions)
		r.Get("/{id}", h.HandleGetSession)
		if h.results != nil {
			r.Get("/{id}/lots", h.HandleListLots)
		}
	})
	if h.results != nil {
		r.Get("/api/games", h.HandleListGames)
	}
}
