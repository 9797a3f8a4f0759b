package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/usagesentry/usagesentry/internal/api/dto"
	"github.com/usagesentry/usagesentry/internal/domain/usage"
	"github.com/usagesentry/usagesentry/internal/pkg/logger"
	"github.com/usagesentry/usagesentry/internal/pkg/utils"
	"github.com/usagesentry/usagesentry/internal/provider"
)

// UsageHandler handles usage data requests
type UsageHandler struct {
	repo   usage.Repository
	sync   *provider.SyncService
	logger *logger.Logger
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(repo usage.Repository, sync *provider.SyncService, log *logger.Logger) *UsageHandler {
	return &UsageHandler{
		repo:   repo,
		sync:   sync,
		logger: log,
	}
}

// Summary handles GET /api/v1/usage/summary
func (h *UsageHandler) Summary(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 90 {
			days = parsed
		}
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -days)

	totals, err := h.repo.Totals(r.Context(), from, now)
	if err != nil {
		utils.WriteAppError(w, err, "Failed to get usage summary")
		return
	}
	if totals == nil {
		totals = []usage.MemberTotals{}
	}

	utils.WriteSuccess(w, http.StatusOK, dto.UsageSummaryResponse{
		Days:    days,
		Members: totals,
	})
}

// Sync handles POST /api/v1/usage/sync
func (h *UsageHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.Sync(r.Context()); err != nil {
		utils.WriteAppError(w, err, "Provider sync failed")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Provider sync completed", nil)
}
