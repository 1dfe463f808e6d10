package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mawsool/insights-backend/internal/forecast"
	"github.com/mawsool/insights-backend/internal/metrics"
	"github.com/mawsool/insights-backend/internal/refresh"
	"github.com/mawsool/insights-backend/internal/workbook"
)

// maxUploadBytes caps uploaded workbook size.
const maxUploadBytes = 10 << 20

// PlannerHandler serves the staffing planner workflow: historical file
// upload, scenario application, view switching and workbook export.
type PlannerHandler struct {
	planner *forecast.Planner
	service *refresh.Service
	logger  zerolog.Logger
}

// NewPlannerHandler creates a new PlannerHandler
func NewPlannerHandler(planner *forecast.Planner, service *refresh.Service, logger zerolog.Logger) *PlannerHandler {
	return &PlannerHandler{
		planner: planner,
		service: service,
		logger:  logger.With().Str("component", "planner_api").Logger(),
	}
}

// HandleForecast handles GET /api/planner/forecast
func (h *PlannerHandler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.service.Snapshot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no forecast available yet")
		return
	}
	writeJSON(w, http.StatusOK, snap.Forecast)
}

// HandleUpload handles POST /api/planner/upload (multipart, field "file")
func (h *PlannerHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		metrics.PlannerUploadsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	cells, err := workbook.Import(file)
	if err != nil {
		metrics.PlannerUploadsTotal.WithLabelValues("error").Inc()
		h.logger.Warn().Err(err).Str("filename", header.Filename).Msg("workbook import rejected")

		var missing workbook.ErrMissingSheet
		if errors.As(err, &missing) {
			writeError(w, http.StatusBadRequest, missing.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "could not parse workbook")
		return
	}

	snap := h.planner.Load(cells)
	metrics.PlannerUploadsTotal.WithLabelValues("ok").Inc()
	h.logger.Info().Str("filename", header.Filename).Int("intervals", len(snap.Intervals)).Msg("baseline loaded")
	writeJSON(w, http.StatusOK, snap)
}

// HandleScenario handles POST /api/planner/scenario
func (h *PlannerHandler) HandleScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxConcurrent int `json:"maxConcurrent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	snap, err := h.planner.ApplyScenario(req.MaxConcurrent)
	if err != nil {
		var bounds forecast.ErrScenarioBounds
		switch {
		case errors.As(err, &bounds):
			writeError(w, http.StatusBadRequest, bounds.Error())
		case errors.Is(err, forecast.ErrNotLoaded):
			writeError(w, http.StatusConflict, "upload a historical workbook first")
		default:
			writeError(w, http.StatusInternalServerError, "scenario failed")
		}
		return
	}

	metrics.PlannerScenariosTotal.Inc()
	writeJSON(w, http.StatusOK, snap)
}

// HandleView handles GET /api/planner/view?mode=baseline|scheduled|capacity
func (h *PlannerHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		writeJSON(w, http.StatusOK, h.planner.View())
		return
	}

	snap, err := h.planner.SetView(forecast.ViewMode(mode))
	if err != nil {
		if errors.Is(err, forecast.ErrNotLoaded) {
			writeError(w, http.StatusConflict, "upload a historical workbook first")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleExport handles GET /api/planner/export
func (h *PlannerHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	snap := h.planner.View()
	if snap.State == forecast.StateEmpty {
		writeError(w, http.StatusConflict, "nothing to export")
		return
	}

	var buf bytes.Buffer
	if err := workbook.Export(&buf, snap.Intervals); err != nil {
		h.logger.Error().Err(err).Msg("workbook export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	metrics.PlannerExportsTotal.Inc()
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="staffing-plan.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
