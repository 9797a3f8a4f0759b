package provider

import (
	"context"
	"time"

	"github.com/usagesentry/usagesentry/internal/domain/usage"
	"github.com/usagesentry/usagesentry/internal/pkg/logger"
	"github.com/usagesentry/usagesentry/internal/pkg/metrics"
)

// UsageSource is the subset of the provider API the sync worker needs
type UsageSource interface {
	ListMembers(ctx context.Context) ([]usage.Member, error)
	UsageEvents(ctx context.Context, since *time.Time) ([]usage.Event, error)
}

// SyncService pulls members and usage events from the provider into local
// storage. The newest stored event time is the incremental cursor, so a
// partial failure just re-fetches a window and the unique event IDs keep
// the write path idempotent.
type SyncService struct {
	source UsageSource
	repo   usage.Repository
	logger *logger.Logger
}

// NewSyncService creates a new provider sync service
func NewSyncService(source UsageSource, repo usage.Repository, log *logger.Logger) *SyncService {
	return &SyncService{
		source: source,
		repo:   repo,
		logger: log,
	}
}

// Sync performs one full pull: members first, then events after the cursor
func (s *SyncService) Sync(ctx context.Context) error {
	start := time.Now()

	members, err := s.source.ListMembers(ctx)
	if err != nil {
		metrics.RecordProviderSync("failure")
		s.logger.ErrorWithErr(err, "Failed to list provider members")
		return err
	}
	if err := s.repo.UpsertMembers(ctx, members); err != nil {
		metrics.RecordProviderSync("failure")
		s.logger.ErrorWithErr(err, "Failed to upsert members")
		return err
	}

	cursor, err := s.repo.LatestEventTime(ctx)
	if err != nil {
		metrics.RecordProviderSync("failure")
		s.logger.ErrorWithErr(err, "Failed to read sync cursor")
		return err
	}

	events, err := s.source.UsageEvents(ctx, cursor)
	if err != nil {
		metrics.RecordProviderSync("failure")
		s.logger.ErrorWithErr(err, "Failed to fetch usage events")
		return err
	}
	if err := s.repo.RecordEvents(ctx, events); err != nil {
		metrics.RecordProviderSync("failure")
		s.logger.ErrorWithErr(err, "Failed to record usage events")
		return err
	}

	metrics.RecordProviderSync("success")
	s.logger.WithFields(map[string]interface{}{
		"members":     len(members),
		"events":      len(events),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Provider sync completed")

	return nil
}
