package worker

import (
	"context"

	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/domain/incident"
	"github.com/usagesentry/usagesentry/internal/pkg/logger"
	"github.com/usagesentry/usagesentry/internal/services"
)

// DetectionRunner composes one end-to-end pipeline pass: run detection,
// open incidents for qualifying new anomalies, and dispatch alerts.
type DetectionRunner struct {
	detection   *services.DetectionService
	incidents   incident.Service
	alerts      *services.AlertService
	minSeverity anomaly.Severity
	logger      *logger.Logger
}

// NewDetectionRunner creates a new detection pipeline runner
func NewDetectionRunner(
	detection *services.DetectionService,
	incidents incident.Service,
	alerts *services.AlertService,
	minSeverity anomaly.Severity,
	log *logger.Logger,
) *DetectionRunner {
	return &DetectionRunner{
		detection:   detection,
		incidents:   incidents,
		alerts:      alerts,
		minSeverity: minSeverity,
		logger:      log,
	}
}

// Run executes one detection pass and alerts on the new anomalies.
// A failed detection run propagates; failures while opening or alerting
// a single incident are logged and the rest of the batch continues.
func (r *DetectionRunner) Run(ctx context.Context) (*services.DetectionResult, error) {
	result, err := r.detection.RunDetection(ctx, nil)
	if err != nil {
		return nil, err
	}

	for _, a := range result.NewAnomalies {
		if !severityAtLeast(a.Severity, r.minSeverity) {
			r.logger.WithFields(map[string]interface{}{
				"anomaly_id": a.ID,
				"severity":   a.Severity,
			}).Debug("Anomaly below alerting severity, skipping incident")
			continue
		}

		inc, err := r.incidents.CreateForAnomaly(ctx, a)
		if err != nil {
			r.logger.WithFields(map[string]interface{}{
				"anomaly_id": a.ID,
			}).ErrorWithErr(err, "Failed to open incident for anomaly")
			continue
		}

		if _, err := r.alerts.Dispatch(ctx, a, inc); err != nil {
			r.logger.WithFields(map[string]interface{}{
				"incident_id": inc.ID,
			}).ErrorWithErr(err, "Failed to advance incident after dispatch")
		}
	}

	return result, nil
}

func severityAtLeast(s, min anomaly.Severity) bool {
	if min == anomaly.SeverityCritical {
		return s == anomaly.SeverityCritical
	}
	return true
}
