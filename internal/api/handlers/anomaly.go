package handlers

import (
	"net/http"
	"strconv"

	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/pkg/logger"
	"github.com/usagesentry/usagesentry/internal/pkg/utils"
	"github.com/usagesentry/usagesentry/internal/services"
)

// AnomalyHandler handles anomaly requests
type AnomalyHandler struct {
	service *services.DetectionService
	logger  *logger.Logger
}

// NewAnomalyHandler creates a new anomaly handler
func NewAnomalyHandler(service *services.DetectionService, log *logger.Logger) *AnomalyHandler {
	return &AnomalyHandler{
		service: service,
		logger:  log,
	}
}

// List handles GET /api/v1/anomalies
func (h *AnomalyHandler) List(w http.ResponseWriter, r *http.Request) {
	params := utils.ParsePaginationParams(r)
	q := r.URL.Query()

	filter := anomaly.Filter{
		SubjectID: q.Get("subject_id"),
		Type:      q.Get("type"),
		Metric:    q.Get("metric"),
		Severity:  q.Get("severity"),
	}
	if raw := q.Get("open"); raw != "" {
		open, err := strconv.ParseBool(raw)
		if err == nil {
			filter.Open = &open
		}
	}

	anomalies, total, err := h.service.ListAnomalies(r.Context(), filter, params.PageSize, params.Offset)
	if err != nil {
		utils.WriteAppError(w, err, "Failed to list anomalies")
		return
	}
	if anomalies == nil {
		anomalies = []*anomaly.Anomaly{}
	}

	utils.WriteJSON(w, http.StatusOK,
		utils.NewPaginatedResponse(anomalies, params.Page, params.PageSize, total))
}

// Get handles GET /api/v1/anomalies/{id}
func (h *AnomalyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		utils.WriteAppError(w, err, "Invalid anomaly ID")
		return
	}

	a, err := h.service.GetAnomaly(r.Context(), id)
	if err != nil {
		utils.WriteAppError(w, err, "Failed to get anomaly")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, a)
}

// GetSummary handles GET /api/v1/anomalies/summary
func (h *AnomalyHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.GetOpenSummary(r.Context())
	if err != nil {
		utils.WriteAppError(w, err, "Failed to get anomaly summary")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"open_by_severity": counts,
	})
}
