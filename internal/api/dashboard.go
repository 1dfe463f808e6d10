// Package api holds the HTTP handlers for the dashboard and planner routes.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mawsool/insights-backend/internal/genesys"
	"github.com/mawsool/insights-backend/internal/refresh"
)

// DashboardHandler serves the aggregated snapshot views.
type DashboardHandler struct {
	service *refresh.Service
	logger  zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(service *refresh.Service, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  logger.With().Str("component", "dashboard_api").Logger(),
	}
}

// HandleDashboard handles GET /api/dashboard
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.service.Snapshot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no snapshot available yet")
		return
	}
	writeJSON(w, http.StatusOK, snap.Dashboard)
}

// HandleCustomers handles GET /api/customers
func (h *DashboardHandler) HandleCustomers(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.service.Snapshot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no snapshot available yet")
		return
	}
	writeJSON(w, http.StatusOK, snap.Customers)
}

// HandleInteractions handles GET /api/interactions
func (h *DashboardHandler) HandleInteractions(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.service.Snapshot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no snapshot available yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"interactions": snap.Interactions,
		"refreshedAt":  snap.RefreshedAt,
	})
}

// HandleRefresh handles POST /api/refresh
func (h *DashboardHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Refresh(r.Context(), "manual"); err != nil {
		h.logger.Error().Err(err).Msg("manual refresh failed")

		var apiErr *genesys.APIError
		if errors.As(err, &apiErr) {
			writeJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error":          "upstream query failed",
				"upstreamStatus": apiErr.Status,
				"message":        apiErr.Message,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}

	snap, _ := h.service.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "refreshed",
		"refreshedAt": snap.RefreshedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
