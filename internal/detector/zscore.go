package detector

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/domain/detection"
	"github.com/usagesentry/usagesentry/internal/domain/usage"
	"github.com/usagesentry/usagesentry/internal/pkg/logger"
)

// ZScore flags members whose prior-window token or request totals are
// statistical outliers against the team's same-window distribution.
// Mean and stddev use the population formula over members with at least
// one event in the window.
type ZScore struct {
	usage  usage.Repository
	logger *logger.Logger
}

// NewZScore creates a new z-score detector
func NewZScore(repo usage.Repository, log *logger.Logger) *ZScore {
	return &ZScore{usage: repo, logger: log}
}

// Name identifies the detector
func (d *ZScore) Name() string {
	return "zscore"
}

// Detect computes team-wide outliers for tokens and requests. The two
// metrics are checked independently and can both fire for one member.
func (d *ZScore) Detect(ctx context.Context, cfg detection.Config, now time.Time) ([]*anomaly.Anomaly, error) {
	window := time.Duration(cfg.ZScoreLookbackDays) * 24 * time.Hour
	from := now.Add(-window)

	totals, err := d.usage.Totals(ctx, from, now)
	if err != nil {
		return nil, err
	}
	// No active members means no population to compare against
	if len(totals) == 0 {
		return nil, nil
	}

	tokenVals := make([]float64, len(totals))
	requestVals := make([]float64, len(totals))
	for i, t := range totals {
		tokenVals[i] = float64(t.Tokens)
		requestVals[i] = float64(t.Requests)
	}

	tokenMean, tokenStd := mean(tokenVals), popStdDev(tokenVals)
	reqMean, reqStd := mean(requestVals), popStdDev(requestVals)

	var out []*anomaly.Anomaly
	for _, t := range totals {
		if z := zScore(float64(t.Tokens), tokenMean, tokenStd); z > cfg.ZScoreMultiplier {
			a := &anomaly.Anomaly{
				SubjectKind: anomaly.SubjectUser,
				SubjectID:   t.MemberID,
				Type:        anomaly.TypeZScore,
				Metric:      anomaly.MetricTokens,
				Severity:    zSeverity(z, cfg.ZScoreMultiplier),
				Value:       float64(t.Tokens),
				Threshold:   tokenMean + cfg.ZScoreMultiplier*tokenStd,
				Message: fmt.Sprintf("%d tokens in the last %dd is %s above the team mean %.0f",
					t.Tokens, cfg.ZScoreLookbackDays, formatZ(z), tokenMean),
				DetectedAt: now,
			}
			// Attach the member's dominant model as diagnosis
			model, err := d.usage.TopModelByTokens(ctx, t.MemberID, from, now)
			if err != nil {
				return nil, err
			}
			a.DiagnosisModel = model
			out = append(out, a)
		}

		if z := zScore(float64(t.Requests), reqMean, reqStd); z > cfg.ZScoreMultiplier {
			out = append(out, &anomaly.Anomaly{
				SubjectKind: anomaly.SubjectUser,
				SubjectID:   t.MemberID,
				Type:        anomaly.TypeZScore,
				Metric:      anomaly.MetricRequests,
				Severity:    zSeverity(z, cfg.ZScoreMultiplier),
				Value:       float64(t.Requests),
				Threshold:   reqMean + cfg.ZScoreMultiplier*reqStd,
				Message: fmt.Sprintf("%d requests in the last %dd is %s above the team mean %.0f",
					t.Requests, cfg.ZScoreLookbackDays, formatZ(z), reqMean),
				DetectedAt: now,
			})
		}
	}

	return out, nil
}

// zSeverity escalates to critical one half-multiplier above the flag line
func zSeverity(z, multiplier float64) anomaly.Severity {
	if z > multiplier*1.5 {
		return anomaly.SeverityCritical
	}
	return anomaly.SeverityWarning
}

func formatZ(z float64) string {
	if math.IsInf(z, 1) {
		return "infinitely"
	}
	return fmt.Sprintf("%.1f sigma", z)
}
