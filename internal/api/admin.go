package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mawsool/insights-backend/internal/auth"
	"github.com/mawsool/insights-backend/internal/storage"
)

// AdminHandler handles destructive maintenance operations.
type AdminHandler struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(store storage.Store, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		store:  store,
		logger: logger.With().Str("component", "admin_handler").Logger(),
	}
}

// RequireAdmin rejects requests whose authenticated user lacks the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.GetUserFromContext(r.Context())
		if !ok || !auth.HasRole(claims, "admin") {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HandleTruncate wipes all persisted interval metrics and forecast
// snapshots.
// POST /api/admin/truncate
func (h *AdminHandler) HandleTruncate(w http.ResponseWriter, r *http.Request) {
	if err := h.store.TruncateAll(); err != nil {
		h.logger.Error().Err(err).Msg("failed to truncate tables")
		writeError(w, http.StatusInternalServerError, "failed to truncate")
		return
	}

	h.logger.Info().Msg("persistence tables truncated")
	writeJSON(w, http.StatusOK, map[string]string{"message": "tables truncated"})
}
