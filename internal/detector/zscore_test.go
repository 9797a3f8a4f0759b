package detector

import (
	"context"
	"testing"
	"time"

	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/domain/detection"
	"github.com/usagesentry/usagesentry/internal/domain/usage"
	"github.com/usagesentry/usagesentry/internal/testutil"
)

func zscoreConfig() detection.Config {
	return detection.Config{
		ZScoreMultiplier:   2.0,
		ZScoreLookbackDays: 1,
	}
}

func TestZScoreDetect_Outlier(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	repo := testutil.NewMockUsageRepository()

	// Five quiet members and one heavy outlier. Requests are uniform so
	// only the token metric should fire, and only for the outlier
	// (z approx 2.24 against a multiplier of 2.0).
	repo.TotalsData = []usage.MemberTotals{
		{MemberID: "m1", Requests: 100, Tokens: 10000},
		{MemberID: "m2", Requests: 100, Tokens: 10000},
		{MemberID: "m3", Requests: 100, Tokens: 10000},
		{MemberID: "m4", Requests: 100, Tokens: 10000},
		{MemberID: "m5", Requests: 100, Tokens: 10000},
		{MemberID: "m6", Requests: 100, Tokens: 500000},
	}
	repo.TopModels["m6"] = "claude-3-opus"

	d := NewZScore(repo, testutil.NewTestLogger())

	got, err := d.Detect(context.Background(), zscoreConfig(), now)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Detect() returned %d anomalies, want 1", len(got))
	}

	a := got[0]
	if a.SubjectID != "m6" {
		t.Errorf("anomaly subject = %s, want m6", a.SubjectID)
	}
	if a.Type != anomaly.TypeZScore || a.Metric != anomaly.MetricTokens {
		t.Errorf("anomaly classified as %s/%s, want zscore/tokens", a.Type, a.Metric)
	}
	if a.Severity != anomaly.SeverityWarning {
		t.Errorf("severity = %s, want warning for z just above the multiplier", a.Severity)
	}
	if a.DiagnosisModel != "claude-3-opus" {
		t.Errorf("diagnosis model = %q, want claude-3-opus", a.DiagnosisModel)
	}
}

func TestZScoreDetect_UniformTeam(t *testing.T) {
	repo := testutil.NewMockUsageRepository()
	repo.TotalsData = []usage.MemberTotals{
		{MemberID: "m1", Requests: 100, Tokens: 5000},
		{MemberID: "m2", Requests: 100, Tokens: 5000},
		{MemberID: "m3", Requests: 100, Tokens: 5000},
	}

	d := NewZScore(repo, testutil.NewTestLogger())

	got, err := d.Detect(context.Background(), zscoreConfig(), time.Now())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Detect() returned %d anomalies for a uniform team, want 0", len(got))
	}
}

func TestZScoreDetect_CriticalOutlier(t *testing.T) {
	repo := testutil.NewMockUsageRepository()
	// Fifteen quiet members against one outlier puts the outlier at
	// z = sqrt(15), about 3.87, past the 1.5x escalation line.
	totals := make([]usage.MemberTotals, 0, 16)
	for i := 0; i < 15; i++ {
		totals = append(totals, usage.MemberTotals{
			MemberID: string(rune('a' + i)),
			Requests: 50,
			Tokens:   10000,
		})
	}
	totals = append(totals, usage.MemberTotals{MemberID: "outlier", Requests: 50, Tokens: 400000})
	repo.TotalsData = totals

	d := NewZScore(repo, testutil.NewTestLogger())

	got, err := d.Detect(context.Background(), zscoreConfig(), time.Now())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Detect() returned %d anomalies, want 1", len(got))
	}
	if got[0].SubjectID != "outlier" || got[0].Severity != anomaly.SeverityCritical {
		t.Errorf("got %s/%s, want outlier at critical", got[0].SubjectID, got[0].Severity)
	}
}

func TestZScoreDetect_EmptyPopulation(t *testing.T) {
	repo := testutil.NewMockUsageRepository()

	d := NewZScore(repo, testutil.NewTestLogger())

	got, err := d.Detect(context.Background(), zscoreConfig(), time.Now())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got != nil {
		t.Errorf("Detect() = %v, want nil for an empty population", got)
	}
}
