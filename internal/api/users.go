package api

import (
	"net/http"

	"github.com/dmeyerson/repboard/internal/storage"
	"github.com/rs/zerolog"
)

// UsersHandler serves the sales-rep roster.
type UsersHandler struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewUsersHandler creates a new UsersHandler
func NewUsersHandler(store storage.Store, logger zerolog.Logger) *UsersHandler {
	return &UsersHandler{
		store:  store,
		logger: logger.With().Str("component", "users_api").Logger(),
	}
}

// HandleListUsers handles GET /api/users
func (h *UsersHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list users")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list users"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}
