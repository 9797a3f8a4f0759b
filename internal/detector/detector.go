package detector

import (
	"context"
	"time"

	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/domain/detection"
)

// Detector scans usage data for one class of anomalies. Detectors are pure
// read-and-compute: they never write to the store, and a store read failure
// propagates to the caller so the whole run aborts instead of degrading.
type Detector interface {
	// Name identifies the detector in logs and metrics
	Name() string

	// Detect returns candidate anomalies for the given parameters
	Detect(ctx context.Context, cfg detection.Config, now time.Time) ([]*anomaly.Anomaly, error)
}

// dayStart returns midnight of now's calendar day
func dayStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// cycleStart returns the start of the current billing cycle (first of month)
func cycleStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}
