package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/domain/detection"
	"github.com/usagesentry/usagesentry/internal/domain/usage"
	"github.com/usagesentry/usagesentry/internal/pkg/logger"
)

// Threshold flags members whose cycle spend or daily request/token counts
// exceed the static configured limits. A limit of zero disables its rule.
type Threshold struct {
	usage  usage.Repository
	logger *logger.Logger
}

// NewThreshold creates a new threshold detector
func NewThreshold(repo usage.Repository, log *logger.Logger) *Threshold {
	return &Threshold{usage: repo, logger: log}
}

// Name identifies the detector
func (d *Threshold) Name() string {
	return "threshold"
}

// Detect checks every member against the configured static limits.
// Comparisons are strict: a value exactly at the limit does not fire.
func (d *Threshold) Detect(ctx context.Context, cfg detection.Config, now time.Time) ([]*anomaly.Anomaly, error) {
	var out []*anomaly.Anomaly

	if cfg.MaxSpendCentsPerCycle > 0 {
		spends, err := d.usage.CycleSpend(ctx, cycleStart(now))
		if err != nil {
			return nil, err
		}
		for _, s := range spends {
			if s.SpendCents <= cfg.MaxSpendCentsPerCycle {
				continue
			}
			out = append(out, &anomaly.Anomaly{
				SubjectKind: anomaly.SubjectUser,
				SubjectID:   s.MemberID,
				Type:        anomaly.TypeThreshold,
				Metric:      anomaly.MetricSpend,
				Severity:    limitSeverity(s.SpendCents, cfg.MaxSpendCentsPerCycle),
				Value:       float64(s.SpendCents),
				Threshold:   float64(cfg.MaxSpendCentsPerCycle),
				Message: fmt.Sprintf("cycle spend $%.2f exceeds limit $%.2f",
					float64(s.SpendCents)/100, float64(cfg.MaxSpendCentsPerCycle)/100),
				DetectedAt: now,
			})
		}
	}

	if cfg.MaxRequestsPerDay > 0 || cfg.MaxTokensPerDay > 0 {
		totals, err := d.usage.Totals(ctx, dayStart(now), now)
		if err != nil {
			return nil, err
		}
		for _, t := range totals {
			if cfg.MaxRequestsPerDay > 0 && t.Requests > cfg.MaxRequestsPerDay {
				out = append(out, &anomaly.Anomaly{
					SubjectKind: anomaly.SubjectUser,
					SubjectID:   t.MemberID,
					Type:        anomaly.TypeThreshold,
					Metric:      anomaly.MetricRequests,
					Severity:    limitSeverity(t.Requests, cfg.MaxRequestsPerDay),
					Value:       float64(t.Requests),
					Threshold:   float64(cfg.MaxRequestsPerDay),
					Message: fmt.Sprintf("%d requests today exceeds limit %d",
						t.Requests, cfg.MaxRequestsPerDay),
					DetectedAt: now,
				})
			}
			if cfg.MaxTokensPerDay > 0 && t.Tokens > cfg.MaxTokensPerDay {
				out = append(out, &anomaly.Anomaly{
					SubjectKind: anomaly.SubjectUser,
					SubjectID:   t.MemberID,
					Type:        anomaly.TypeThreshold,
					Metric:      anomaly.MetricTokens,
					Severity:    limitSeverity(t.Tokens, cfg.MaxTokensPerDay),
					Value:       float64(t.Tokens),
					Threshold:   float64(cfg.MaxTokensPerDay),
					Message: fmt.Sprintf("%d tokens today exceeds limit %d",
						t.Tokens, cfg.MaxTokensPerDay),
					DetectedAt: now,
				})
			}
		}
	}

	return out, nil
}

// limitSeverity escalates to critical when the value is more than double
// the configured limit
func limitSeverity(value, limit int64) anomaly.Severity {
	if value > 2*limit {
		return anomaly.SeverityCritical
	}
	return anomaly.SeverityWarning
}
