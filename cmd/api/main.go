package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/usagesentry/usagesentry/internal/api/handlers"
	"github.com/usagesentry/usagesentry/internal/api/router"
	"github.com/usagesentry/usagesentry/internal/config"
	"github.com/usagesentry/usagesentry/internal/detector"
	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/notify"
	"github.com/usagesentry/usagesentry/internal/pkg/logger"
	"github.com/usagesentry/usagesentry/internal/pkg/validator"
	"github.com/usagesentry/usagesentry/internal/provider"
	"github.com/usagesentry/usagesentry/internal/repository/postgres"
	"github.com/usagesentry/usagesentry/internal/services"
	"github.com/usagesentry/usagesentry/internal/worker"
	"github.com/usagesentry/usagesentry/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	db, err := postgres.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(db, migrations.GetFS()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	anomalyRepo := postgres.NewAnomalyRepository(db)
	incidentRepo := postgres.NewIncidentRepository(db)
	usageRepo := postgres.NewUsageRepository(db)
	configRepo := postgres.NewDetectionConfigRepository(db)

	// Detectors
	detectors := []detector.Detector{
		detector.NewThreshold(usageRepo, log),
		detector.NewZScore(usageRepo, log),
		detector.NewTrend(usageRepo, log),
	}

	// Notification channels
	var channels []notify.Channel
	if cfg.Alerting.SlackWebhookURL != "" {
		channels = append(channels, notify.NewSlackChannel(cfg.Alerting.SlackWebhookURL, log))
	}
	if cfg.Alerting.SMTPHost != "" && len(cfg.Alerting.EmailRecipients) > 0 {
		channels = append(channels, notify.NewEmailChannel(
			cfg.Alerting.SMTPHost,
			cfg.Alerting.SMTPPort,
			cfg.Alerting.SMTPUsername,
			cfg.Alerting.SMTPPassword,
			cfg.Alerting.EmailFrom,
			cfg.Alerting.EmailRecipients,
			log,
		))
	}
	if len(channels) == 0 {
		log.Warn("No notification channels configured, incidents will stay unalerted")
	}

	// Services
	detectionService := services.NewDetectionService(detectors, anomalyRepo, configRepo, log)
	incidentService := services.NewIncidentService(incidentRepo, anomalyRepo, log)
	alertService := services.NewAlertService(channels, incidentService, log)

	providerClient := provider.NewClient(cfg.Provider, log)
	syncService := provider.NewSyncService(providerClient, usageRepo, log)

	runner := worker.NewDetectionRunner(
		detectionService,
		incidentService,
		alertService,
		anomaly.Severity(cfg.Alerting.MinSeverity),
		log,
	)

	// Background scheduler
	if cfg.Scheduler.Enabled {
		scheduler, err := worker.NewScheduler(cfg.Scheduler, runner, syncService, log)
		if err != nil {
			log.Fatalf("Failed to build scheduler: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// HTTP server
	v := validator.New()
	h := &router.Handlers{
		Health:    handlers.NewHealthHandler(db, log),
		Anomaly:   handlers.NewAnomalyHandler(detectionService, log),
		Incident:  handlers.NewIncidentHandler(incidentService, log),
		Detection: handlers.NewDetectionHandler(runner, detectionService, v, log),
		Usage:     handlers.NewUsageHandler(usageRepo, syncService, log),
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, log, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"addr":        srv.Addr,
			"environment": cfg.Server.Environment,
		}).Info("HTTP server starting")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.ErrorWithErr(err, "Forced shutdown")
	}

	log.Info("Server stopped")
}
