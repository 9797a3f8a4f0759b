package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/usagesentry/usagesentry/internal/detector"
	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/domain/detection"
	"github.com/usagesentry/usagesentry/internal/pkg/logger"
	"github.com/usagesentry/usagesentry/internal/pkg/metrics"
)

// DetectionResult summarizes one detection run
type DetectionResult struct {
	RunID         string             `json:"run_id"`
	NewAnomalies  []*anomaly.Anomaly `json:"new_anomalies"`
	ResolvedCount int                `json:"resolved_count"`
	TotalOpen     int                `json:"total_open"`
	StartedAt     time.Time          `json:"started_at"`
	Duration      time.Duration      `json:"duration"`
}

// DetectionService orchestrates the detectors and reconciles their output
// against the currently open anomalies.
type DetectionService struct {
	detectors []detector.Detector
	anomalies anomaly.Repository
	configs   detection.Repository
	logger    *logger.Logger

	// Serializes overlapping cron and manual triggers within this
	// process; the read-reconcile-write sequence must not interleave.
	runMu sync.Mutex

	now func() time.Time
}

// NewDetectionService creates a new detection orchestrator
func NewDetectionService(
	detectors []detector.Detector,
	anomalies anomaly.Repository,
	configs detection.Repository,
	log *logger.Logger,
) *DetectionService {
	return &DetectionService{
		detectors: detectors,
		anomalies: anomalies,
		configs:   configs,
		logger:    log,
		now:       time.Now,
	}
}

// RunDetection executes one full detection pass. All detectors run and
// collect first; nothing is written until every detector has returned
// successfully, so a failing detector aborts the run without partially
// resolving anomalies it never got to re-confirm. Re-running against
// unchanged data yields zero new anomalies and zero resolutions.
func (s *DetectionService) RunDetection(ctx context.Context, override *detection.Config) (*DetectionResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := s.now()
	runID := uuid.New().String()
	log := s.logger.With("run_id", runID)

	cfg := override
	if cfg == nil {
		stored, err := s.configs.Get(ctx)
		if err != nil {
			metrics.RecordDetectionRun("failure", 0)
			log.ErrorWithErr(err, "Failed to load detection config")
			return nil, err
		}
		cfg = stored
	}

	// Phase 1: run every detector, collect everything, write nothing
	var allDetected []*anomaly.Anomaly
	for _, d := range s.detectors {
		detected, err := d.Detect(ctx, *cfg, start)
		if err != nil {
			metrics.RecordDetectionRun("failure", 0)
			log.WithFields(map[string]interface{}{
				"detector": d.Name(),
			}).ErrorWithErr(err, "Detector failed, aborting run")
			return nil, err
		}
		log.WithFields(map[string]interface{}{
			"detector": d.Name(),
			"detected": len(detected),
		}).Debug("Detector completed")
		allDetected = append(allDetected, detected...)
	}

	open, err := s.anomalies.ListOpen(ctx)
	if err != nil {
		metrics.RecordDetectionRun("failure", 0)
		log.ErrorWithErr(err, "Failed to list open anomalies")
		return nil, err
	}

	existingKeys := make(map[anomaly.Key]*anomaly.Anomaly, len(open))
	for _, a := range open {
		existingKeys[a.Key()] = a
	}

	// Phase 2: persist unseen keys, remember every key seen this run
	detectedKeys := make(map[anomaly.Key]bool, len(allDetected))
	var newAnomalies []*anomaly.Anomaly
	for _, a := range allDetected {
		key := a.Key()
		if detectedKeys[key] {
			continue
		}
		detectedKeys[key] = true

		if _, exists := existingKeys[key]; exists {
			continue
		}

		id, err := s.anomalies.Create(ctx, a)
		if err != nil {
			metrics.RecordDetectionRun("failure", 0)
			log.ErrorWithErr(err, "Failed to persist anomaly")
			return nil, err
		}
		a.ID = id
		newAnomalies = append(newAnomalies, a)
		metrics.RecordAnomalyDetected(string(a.Type), string(a.Severity))

		log.WithFields(map[string]interface{}{
			"anomaly_id": id,
			"subject":    a.SubjectID,
			"type":       a.Type,
			"metric":     a.Metric,
			"severity":   a.Severity,
		}).Info("Anomaly created")
	}

	// Phase 3: auto-resolve open anomalies no detector reported this run
	resolved := 0
	for key, a := range existingKeys {
		if detectedKeys[key] {
			continue
		}
		if err := s.anomalies.Resolve(ctx, a.ID); err != nil {
			metrics.RecordDetectionRun("failure", 0)
			log.ErrorWithErr(err, "Failed to resolve anomaly")
			return nil, err
		}
		resolved++
		log.WithFields(map[string]interface{}{
			"anomaly_id": a.ID,
			"subject":    a.SubjectID,
			"type":       a.Type,
			"metric":     a.Metric,
		}).Info("Anomaly auto-resolved")
	}

	totalOpen := len(open) - resolved + len(newAnomalies)
	duration := s.now().Sub(start)
	metrics.RecordDetectionRun("success", duration)
	s.publishOpenGauge(ctx)

	log.WithFields(map[string]interface{}{
		"new":         len(newAnomalies),
		"resolved":    resolved,
		"total_open":  totalOpen,
		"duration_ms": duration.Milliseconds(),
	}).Info("Detection run completed")

	return &DetectionResult{
		RunID:         runID,
		NewAnomalies:  newAnomalies,
		ResolvedCount: resolved,
		TotalOpen:     totalOpen,
		StartedAt:     start,
		Duration:      duration,
	}, nil
}

// GetConfig returns the stored detection config
func (s *DetectionService) GetConfig(ctx context.Context) (*detection.Config, error) {
	return s.configs.Get(ctx)
}

// UpdateConfig replaces the stored detection config
func (s *DetectionService) UpdateConfig(ctx context.Context, cfg *detection.Config) error {
	if err := s.configs.Update(ctx, cfg); err != nil {
		s.logger.ErrorWithErr(err, "Failed to update detection config")
		return err
	}
	s.logger.Info("Detection config updated")
	return nil
}

// ListAnomalies retrieves anomalies with filters and pagination
func (s *DetectionService) ListAnomalies(ctx context.Context, filter anomaly.Filter, limit, offset int) ([]*anomaly.Anomaly, int64, error) {
	return s.anomalies.ListWithPagination(ctx, filter, limit, offset)
}

// GetAnomaly retrieves a single anomaly
func (s *DetectionService) GetAnomaly(ctx context.Context, id int64) (*anomaly.Anomaly, error) {
	return s.anomalies.GetByID(ctx, id)
}

// GetOpenSummary counts open anomalies by severity
func (s *DetectionService) GetOpenSummary(ctx context.Context) (map[string]int, error) {
	return s.anomalies.CountOpenBySeverity(ctx)
}

func (s *DetectionService) publishOpenGauge(ctx context.Context) {
	counts, err := s.anomalies.CountOpenBySeverity(ctx)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to refresh open anomaly gauge")
		return
	}
	for _, sev := range []anomaly.Severity{anomaly.SeverityWarning, anomaly.SeverityCritical} {
		metrics.SetOpenAnomalies(string(sev), counts[string(sev)])
	}
}
