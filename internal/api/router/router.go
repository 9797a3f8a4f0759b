package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/usagesentry/usagesentry/internal/api/handlers"
	"github.com/usagesentry/usagesentry/internal/api/middleware"
	"github.com/usagesentry/usagesentry/internal/config"
	"github.com/usagesentry/usagesentry/internal/pkg/logger"
	"github.com/usagesentry/usagesentry/internal/pkg/metrics"
)

// Handlers groups the HTTP handlers wired into the router
type Handlers struct {
	Health    *handlers.HealthHandler
	Anomaly   *handlers.AnomalyHandler
	Incident  *handlers.IncidentHandler
	Detection *handlers.DetectionHandler
	Usage     *handlers.UsageHandler
}

// New builds the HTTP router
func New(cfg *config.Config, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(metrics.Middleware)
	r.Use(middleware.DefaultCORS(cfg.Server.FrontendURL))
	r.Use(middleware.RateLimit(100, 200)) // 100 req/sec, burst of 200

	// Public routes
	r.Group(func(r chi.Router) {
		r.Get("/health", h.Health.Healthz)
		r.Get("/healthz", h.Health.Healthz)
		r.Get("/readyz", h.Health.Readyz)
		r.Handle("/metrics", metrics.Handler())
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.TokenAuth(cfg.Server.APIToken))

		// Anomalies
		r.Route("/api/v1/anomalies", func(r chi.Router) {
			r.Get("/", h.Anomaly.List)
			r.Get("/summary", h.Anomaly.GetSummary)
			r.Get("/{id}", h.Anomaly.Get)
		})

		// Incidents
		r.Route("/api/v1/incidents", func(r chi.Router) {
			r.Get("/", h.Incident.List)
			r.Get("/summary", h.Incident.GetSummary)
			r.Get("/{id}", h.Incident.Get)
			r.Post("/{id}/ack", h.Incident.Acknowledge)
			r.Post("/{id}/resolve", h.Incident.Resolve)
		})

		// Detection
		r.Route("/api/v1/detection", func(r chi.Router) {
			r.Post("/run", h.Detection.Run)
			r.Get("/config", h.Detection.GetConfig)
			r.Put("/config", h.Detection.UpdateConfig)
		})

		// Usage
		r.Route("/api/v1/usage", func(r chi.Router) {
			r.Get("/summary", h.Usage.Summary)
			r.Post("/sync", h.Usage.Sync)
		})
	})

	return r
}
