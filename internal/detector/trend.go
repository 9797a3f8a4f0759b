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

// Trend runs three independent checks against per-member history:
// personal baseline spikes, sustained drift above the team P75, and
// shifts toward costlier models. The checks do not suppress each other;
// persisted dedup happens in the orchestrator.
type Trend struct {
	usage  usage.Repository
	logger *logger.Logger
}

// NewTrend creates a new trend detector
func NewTrend(repo usage.Repository, log *logger.Logger) *Trend {
	return &Trend{usage: repo, logger: log}
}

// Name identifies the detector
func (d *Trend) Name() string {
	return "trend"
}

// Detect runs all three trend checks
func (d *Trend) Detect(ctx context.Context, cfg detection.Config, now time.Time) ([]*anomaly.Anomaly, error) {
	var out []*anomaly.Anomaly

	spikes, err := d.detectSpikes(ctx, cfg, now)
	if err != nil {
		return nil, err
	}
	out = append(out, spikes...)

	drifts, err := d.detectDrift(ctx, cfg, now)
	if err != nil {
		return nil, err
	}
	out = append(out, drifts...)

	shifts, err := d.detectModelShift(ctx, cfg, now)
	if err != nil {
		return nil, err
	}
	out = append(out, shifts...)

	return out, nil
}

// detectSpikes compares each member's last-24h totals against the mean of
// their preceding SpikeLookbackDays daily aggregates. Members without any
// prior history are skipped since no meaningful ratio exists.
func (d *Trend) detectSpikes(ctx context.Context, cfg detection.Config, now time.Time) ([]*anomaly.Anomaly, error) {
	last24From := now.Add(-24 * time.Hour)
	recent, err := d.usage.Totals(ctx, last24From, now)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, nil
	}

	histFrom := last24From.AddDate(0, 0, -cfg.SpikeLookbackDays)
	history, err := d.usage.DailyTotals(ctx, histFrom, last24From)
	if err != nil {
		return nil, err
	}

	histTokens := make(map[string]int64)
	histRequests := make(map[string]int64)
	for _, h := range history {
		histTokens[h.MemberID] += h.Tokens
		histRequests[h.MemberID] += h.Requests
	}

	days := float64(cfg.SpikeLookbackDays)
	var out []*anomaly.Anomaly
	for _, r := range recent {
		if a := d.spikeCheck(r.MemberID, anomaly.MetricTokens, float64(r.Tokens),
			float64(histTokens[r.MemberID])/days, cfg.SpikeMultiplier, now); a != nil {
			out = append(out, a)
		}
		if a := d.spikeCheck(r.MemberID, anomaly.MetricRequests, float64(r.Requests),
			float64(histRequests[r.MemberID])/days, cfg.SpikeMultiplier, now); a != nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func (d *Trend) spikeCheck(memberID string, metric anomaly.Metric, value, baseline, multiplier float64, now time.Time) *anomaly.Anomaly {
	if baseline <= 0 {
		return nil
	}
	ratio := value / baseline
	if ratio <= multiplier {
		return nil
	}

	severity := anomaly.SeverityWarning
	if ratio > 2*multiplier {
		severity = anomaly.SeverityCritical
	}

	return &anomaly.Anomaly{
		SubjectKind:   anomaly.SubjectUser,
		SubjectID:     memberID,
		Type:          anomaly.TypeTrend,
		Metric:        metric,
		Severity:      severity,
		Value:         value,
		Threshold:     baseline * multiplier,
		DiagnosisKind: anomaly.DiagnosisSpike,
		Message: fmt.Sprintf("last-24h %s %.0f is %.1fx the personal daily baseline %.0f",
			metric, value, ratio, baseline),
		DetectedAt: now,
	}
}

// detectDrift pools every member-day token total over a
// DriftDaysAboveP75+1 day window, takes the nearest-rank 75th percentile,
// and fires for members above it on at least DriftDaysAboveP75 days.
func (d *Trend) detectDrift(ctx context.Context, cfg detection.Config, now time.Time) ([]*anomaly.Anomaly, error) {
	windowDays := cfg.DriftDaysAboveP75 + 1
	from := dayStart(now).AddDate(0, 0, -(windowDays - 1))

	rows, err := d.usage.DailyTotals(ctx, from, now)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	pooled := make([]float64, len(rows))
	byMember := make(map[string][]usage.MemberDay)
	for i, r := range rows {
		pooled[i] = float64(r.Tokens)
		byMember[r.MemberID] = append(byMember[r.MemberID], r)
	}
	p75 := percentileNearestRank(pooled, 0.75)

	var out []*anomaly.Anomaly
	for memberID, days := range byMember {
		daysAbove := 0
		var total int64
		for _, day := range days {
			total += day.Tokens
			if float64(day.Tokens) > p75 {
				daysAbove++
			}
		}
		if daysAbove < cfg.DriftDaysAboveP75 {
			continue
		}

		severity := anomaly.SeverityWarning
		if daysAbove >= windowDays {
			severity = anomaly.SeverityCritical
		}

		out = append(out, &anomaly.Anomaly{
			SubjectKind:   anomaly.SubjectUser,
			SubjectID:     memberID,
			Type:          anomaly.TypeTrend,
			Metric:        anomaly.MetricTokens,
			Severity:      severity,
			Value:         float64(total) / float64(len(days)),
			Threshold:     p75,
			DiagnosisKind: anomaly.DiagnosisDrift,
			Message: fmt.Sprintf("daily tokens above team P75 %.0f on %d of the last %d days",
				p75, daysAbove, windowDays),
			DetectedAt: now,
		})
	}
	return out, nil
}

// detectModelShift compares each member's share of today's requests on
// expensive models against their share over the trailing 8-to-1-day-ago
// window. Fires when today's share tops 30% and grew by more than 20
// percentage points. Members need non-zero totals in both windows.
func (d *Trend) detectModelShift(ctx context.Context, cfg detection.Config, now time.Time) ([]*anomaly.Anomaly, error) {
	today := dayStart(now)

	todayRows, err := d.usage.ModelBreakdown(ctx, today, now)
	if err != nil {
		return nil, err
	}
	histRows, err := d.usage.ModelBreakdown(ctx, today.AddDate(0, 0, -8), today)
	if err != nil {
		return nil, err
	}

	type share struct {
		total     int64
		expensive int64
		topModel  string
		topCount  int64
	}
	todayShares := make(map[string]*share)
	histShares := make(map[string]*share)

	accumulate := func(m map[string]*share, rows []usage.ModelUsage) {
		for _, r := range rows {
			s := m[r.MemberID]
			if s == nil {
				s = &share{}
				m[r.MemberID] = s
			}
			s.total += r.Requests
			if detection.IsExpensiveModel(r.Model) {
				s.expensive += r.Requests
				if r.Requests > s.topCount {
					s.topCount = r.Requests
					s.topModel = r.Model
				}
			}
		}
	}
	accumulate(todayShares, todayRows)
	accumulate(histShares, histRows)

	var out []*anomaly.Anomaly
	for memberID, t := range todayShares {
		h := histShares[memberID]
		if t.total == 0 || h == nil || h.total == 0 {
			continue
		}

		todayShare := float64(t.expensive) / float64(t.total)
		histShare := float64(h.expensive) / float64(h.total)
		delta := todayShare - histShare
		if todayShare <= 0.30 || delta <= 0.20 {
			continue
		}

		severity := anomaly.SeverityWarning
		if delta > 0.40 {
			severity = anomaly.SeverityCritical
		}

		out = append(out, &anomaly.Anomaly{
			SubjectKind:    anomaly.SubjectUser,
			SubjectID:      memberID,
			Type:           anomaly.TypeTrend,
			Metric:         anomaly.MetricModelShift,
			Severity:       severity,
			Value:          todayShare * 100,
			Threshold:      histShare*100 + 20,
			DiagnosisModel: t.topModel,
			DiagnosisKind:  anomaly.DiagnosisModelShift,
			DiagnosisDelta: delta * 100,
			Message: fmt.Sprintf("expensive-model share %.0f%% of today's requests, up %.0fpp from the trailing week",
				todayShare*100, delta*100),
			DetectedAt: now,
		})
	}
	return out, nil
}
