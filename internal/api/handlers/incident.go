package handlers

import (
	"net/http"

	"github.com/usagesentry/usagesentry/internal/domain/incident"
	"github.com/usagesentry/usagesentry/internal/pkg/logger"
	"github.com/usagesentry/usagesentry/internal/pkg/utils"
)

// IncidentHandler handles incident lifecycle requests
type IncidentHandler struct {
	service incident.Service
	logger  *logger.Logger
}

// NewIncidentHandler creates a new incident handler
func NewIncidentHandler(service incident.Service, log *logger.Logger) *IncidentHandler {
	return &IncidentHandler{
		service: service,
		logger:  log,
	}
}

// List handles GET /api/v1/incidents
func (h *IncidentHandler) List(w http.ResponseWriter, r *http.Request) {
	params := utils.ParsePaginationParams(r)
	q := r.URL.Query()

	filter := incident.Filter{
		SubjectID: q.Get("subject_id"),
		Status:    q.Get("status"),
	}

	incidents, total, err := h.service.List(r.Context(), filter, params.PageSize, params.Offset)
	if err != nil {
		utils.WriteAppError(w, err, "Failed to list incidents")
		return
	}
	if incidents == nil {
		incidents = []*incident.Incident{}
	}

	utils.WriteJSON(w, http.StatusOK,
		utils.NewPaginatedResponse(incidents, params.Page, params.PageSize, total))
}

// Get handles GET /api/v1/incidents/{id}
func (h *IncidentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		utils.WriteAppError(w, err, "Invalid incident ID")
		return
	}

	inc, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		utils.WriteAppError(w, err, "Failed to get incident")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, inc)
}

// GetSummary handles GET /api/v1/incidents/summary
func (h *IncidentHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.GetSummary(r.Context())
	if err != nil {
		utils.WriteAppError(w, err, "Failed to get incident summary")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"by_status": counts,
	})
}

// Acknowledge handles POST /api/v1/incidents/{id}/ack
func (h *IncidentHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		utils.WriteAppError(w, err, "Invalid incident ID")
		return
	}

	if err := h.service.Acknowledge(r.Context(), id); err != nil {
		utils.WriteAppError(w, err, "Failed to acknowledge incident")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Incident acknowledged", nil)
}

// Resolve handles POST /api/v1/incidents/{id}/resolve
func (h *IncidentHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		utils.WriteAppError(w, err, "Invalid incident ID")
		return
	}

	if err := h.service.Resolve(r.Context(), id); err != nil {
		utils.WriteAppError(w, err, "Failed to resolve incident")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Incident resolved", nil)
}
