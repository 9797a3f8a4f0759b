package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/usagesentry/usagesentry/internal/config"
	"github.com/usagesentry/usagesentry/internal/pkg/logger"
	"github.com/usagesentry/usagesentry/internal/provider"
)

// Scheduler drives the periodic detection and provider sync jobs
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger
}

// NewScheduler creates a scheduler with the configured cron expressions
func NewScheduler(
	cfg config.SchedulerConfig,
	runner *DetectionRunner,
	sync *provider.SyncService,
	log *logger.Logger,
) (*Scheduler, error) {
	c := cron.New()

	_, err := c.AddFunc(cfg.DetectionSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if _, err := runner.Run(ctx); err != nil {
			log.ErrorWithErr(err, "Scheduled detection run failed")
		}
	})
	if err != nil {
		return nil, err
	}

	_, err = c.AddFunc(cfg.SyncSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err := sync.Sync(ctx); err != nil {
			log.ErrorWithErr(err, "Scheduled provider sync failed")
		}
	})
	if err != nil {
		return nil, err
	}

	return &Scheduler{cron: c, logger: log}, nil
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.logger.Info("Scheduler started")
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}
