package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mawsool/insights-backend/internal/refresh"
	"github.com/mawsool/insights-backend/internal/storage"
)

// HistoryHandler serves persisted interval metrics and forecast snapshots.
type HistoryHandler struct {
	store   storage.Store
	service *refresh.Service
	logger  zerolog.Logger
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(store storage.Store, service *refresh.Service, logger zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{
		store:   store,
		service: service,
		logger:  logger.With().Str("component", "history_handler").Logger(),
	}
}

// HandleIntervalHistory returns the persisted interval metrics of one
// business day.
// GET /api/history?date=YYYY-MM-DD
func (h *HistoryHandler) HandleIntervalHistory(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date query parameter is required (YYYY-MM-DD)")
		return
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	records, err := h.store.GetIntervalMetrics(date)
	if err != nil {
		h.logger.Error().Err(err).Str("date", date).Msg("failed to get interval metrics")
		writeError(w, http.StatusInternalServerError, "failed to retrieve history")
		return
	}
	if records == nil {
		records = []storage.IntervalMetricRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

// HandleForecastHistory returns all persisted forecast snapshots for the
// resolved queue.
// GET /api/planner/history
func (h *HistoryHandler) HandleForecastHistory(w http.ResponseWriter, r *http.Request) {
	queueID := h.service.QueueID()
	if queueID == "" {
		writeError(w, http.StatusServiceUnavailable, "queue not resolved yet")
		return
	}

	records, err := h.store.GetForecastSnapshots(queueID)
	if err != nil {
		h.logger.Error().Err(err).Str("queue_id", queueID).Msg("failed to get forecast snapshots")
		writeError(w, http.StatusInternalServerError, "failed to retrieve forecast history")
		return
	}
	if records == nil {
		records = []storage.ForecastSnapshotRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}
