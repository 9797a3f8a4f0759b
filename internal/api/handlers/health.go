package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/usagesentry/usagesentry/internal/pkg/logger"
	"github.com/usagesentry/usagesentry/internal/pkg/utils"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *sql.DB, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: log,
	}
}

// Healthz handles the liveness probe
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Readyz handles the readiness probe
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.ErrorWithErr(err, "Database ping failed")
		utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"success": false,
			"status":  "unavailable",
		})
		return
	}

	utils.WriteSuccess(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "connected",
	})
}
