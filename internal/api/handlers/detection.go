package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/usagesentry/usagesentry/internal/api/dto"
	"github.com/usagesentry/usagesentry/internal/domain/detection"
	"github.com/usagesentry/usagesentry/internal/pkg/errors"
	"github.com/usagesentry/usagesentry/internal/pkg/logger"
	"github.com/usagesentry/usagesentry/internal/pkg/utils"
	"github.com/usagesentry/usagesentry/internal/pkg/validator"
	"github.com/usagesentry/usagesentry/internal/services"
	"github.com/usagesentry/usagesentry/internal/worker"
)

// DetectionHandler handles detection run and config requests
type DetectionHandler struct {
	runner    *worker.DetectionRunner
	service   *services.DetectionService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewDetectionHandler creates a new detection handler
func NewDetectionHandler(
	runner *worker.DetectionRunner,
	service *services.DetectionService,
	v *validator.Validator,
	log *logger.Logger,
) *DetectionHandler {
	return &DetectionHandler{
		runner:    runner,
		service:   service,
		validator: v,
		logger:    log,
	}
}

// Run handles POST /api/v1/detection/run. It triggers the full pipeline:
// detection, incident creation and alert dispatch.
func (h *DetectionHandler) Run(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.Run(r.Context())
	if err != nil {
		utils.WriteAppError(w, err, "Detection run failed")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.RunDetectionResponse{
		RunID:         result.RunID,
		NewAnomalies:  len(result.NewAnomalies),
		ResolvedCount: result.ResolvedCount,
		TotalOpen:     result.TotalOpen,
		DurationMs:    result.Duration.Milliseconds(),
	})
}

// GetConfig handles GET /api/v1/detection/config
func (h *DetectionHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.GetConfig(r.Context())
	if err != nil {
		utils.WriteAppError(w, err, "Failed to get detection config")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, cfg)
}

// UpdateConfig handles PUT /api/v1/detection/config
func (h *DetectionHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateDetectionConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}

	if validationErrors := h.validator.Validate(req); len(validationErrors) > 0 {
		utils.WriteError(w, errors.ValidationError("Invalid detection config", validationErrors))
		return
	}

	cfg := &detection.Config{
		MaxSpendCentsPerCycle: req.MaxSpendCentsPerCycle,
		MaxRequestsPerDay:     req.MaxRequestsPerDay,
		MaxTokensPerDay:       req.MaxTokensPerDay,
		ZScoreMultiplier:      req.ZScoreMultiplier,
		ZScoreLookbackDays:    req.ZScoreLookbackDays,
		SpikeMultiplier:       req.SpikeMultiplier,
		SpikeLookbackDays:     req.SpikeLookbackDays,
		DriftDaysAboveP75:     req.DriftDaysAboveP75,
	}

	if err := h.service.UpdateConfig(r.Context(), cfg); err != nil {
		utils.WriteAppError(w, err, "Failed to update detection config")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Detection config updated", cfg)
}
