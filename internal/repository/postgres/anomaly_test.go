package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/pkg/errors"
	"github.com/usagesentry/usagesentry/internal/repository/postgres"
	"github.com/usagesentry/usagesentry/internal/testutil"
)

func storedAnomaly(subject string, metric anomaly.Metric, detectedAt time.Time) *anomaly.Anomaly {
	return &anomaly.Anomaly{
		SubjectKind: anomaly.SubjectUser,
		SubjectID:   subject,
		Type:        anomaly.TypeZScore,
		Severity:    anomaly.SeverityWarning,
		Metric:      metric,
		Value:       95000,
		Threshold:   42000,
		Message:     "tokens above team mean",
		DetectedAt:  detectedAt,
		CreatedAt:   detectedAt,
	}
}

func TestAnomalyRepository_CreateAndGet(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewAnomalyRepository(db)
	ctx := context.Background()

	detectedAt := time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)
	a := storedAnomaly("alice", anomaly.MetricTokens, detectedAt)
	a.DiagnosisModel = "claude-3-opus"
	a.DiagnosisKind = anomaly.DiagnosisSpike
	a.DiagnosisDelta = 12.5

	id, err := repo.Create(ctx, a)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id == 0 {
		t.Fatal("Create() assigned no ID")
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.SubjectID != "alice" || got.Type != anomaly.TypeZScore || got.Metric != anomaly.MetricTokens {
		t.Errorf("got %s/%s/%s, want alice/zscore/tokens", got.SubjectID, got.Type, got.Metric)
	}
	if got.Value != 95000 || got.Threshold != 42000 {
		t.Errorf("value/threshold = %v/%v, want 95000/42000", got.Value, got.Threshold)
	}
	if got.DiagnosisModel != "claude-3-opus" || got.DiagnosisKind != anomaly.DiagnosisSpike || got.DiagnosisDelta != 12.5 {
		t.Errorf("diagnosis = %s/%s/%v, want claude-3-opus/spike/12.5",
			got.DiagnosisModel, got.DiagnosisKind, got.DiagnosisDelta)
	}
	if !got.DetectedAt.Equal(detectedAt) {
		t.Errorf("detected at = %v, want %v", got.DetectedAt, detectedAt)
	}
	if got.ResolvedAt != nil || got.AlertedAt != nil {
		t.Error("new anomaly should have nil resolved/alerted timestamps")
	}
}

func TestAnomalyRepository_GetByIDNotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewAnomalyRepository(db)

	_, err := repo.GetByID(context.Background(), 999)
	if !errors.IsNotFound(err) {
		t.Errorf("GetByID(999) error = %v, want not found", err)
	}
}

func TestAnomalyRepository_ResolveAndListOpen(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewAnomalyRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	id1, _ := repo.Create(ctx, storedAnomaly("alice", anomaly.MetricTokens, base))
	id2, _ := repo.Create(ctx, storedAnomaly("bob", anomaly.MetricRequests, base.Add(time.Hour)))

	open, err := repo.ListOpen(ctx)
	if err != nil {
		t.Fatalf("ListOpen() error = %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("ListOpen() returned %d, want 2", len(open))
	}
	// Newest detection first
	if open[0].ID != id2 {
		t.Errorf("ListOpen()[0].ID = %d, want %d", open[0].ID, id2)
	}

	if err := repo.Resolve(ctx, id1); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	// Resolving again is a no-op, not an error
	if err := repo.Resolve(ctx, id1); err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}

	open, err = repo.ListOpen(ctx)
	if err != nil {
		t.Fatalf("ListOpen() error = %v", err)
	}
	if len(open) != 1 || open[0].ID != id2 {
		t.Errorf("ListOpen() after resolve = %d entries, want only anomaly %d", len(open), id2)
	}

	resolved, _ := repo.GetByID(ctx, id1)
	if resolved.ResolvedAt == nil {
		t.Error("resolved anomaly should carry a timestamp")
	}
}

func TestAnomalyRepository_MarkAlerted(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewAnomalyRepository(db)
	ctx := context.Background()

	id, _ := repo.Create(ctx, storedAnomaly("alice", anomaly.MetricTokens, time.Now().UTC().Truncate(time.Second)))

	if err := repo.MarkAlerted(ctx, id); err != nil {
		t.Fatalf("MarkAlerted() error = %v", err)
	}
	got, _ := repo.GetByID(ctx, id)
	if got.AlertedAt == nil {
		t.Fatal("alerted timestamp should be set")
	}

	// A second call must not move the timestamp
	first := *got.AlertedAt
	if err := repo.MarkAlerted(ctx, id); err != nil {
		t.Fatalf("second MarkAlerted() error = %v", err)
	}
	got, _ = repo.GetByID(ctx, id)
	if !got.AlertedAt.Equal(first) {
		t.Errorf("alerted at moved from %v to %v", first, got.AlertedAt)
	}
}

func TestAnomalyRepository_ListWithPagination(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewAnomalyRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	id1, _ := repo.Create(ctx, storedAnomaly("alice", anomaly.MetricTokens, base))
	repo.Create(ctx, storedAnomaly("bob", anomaly.MetricRequests, base.Add(time.Minute)))
	critical := storedAnomaly("carol", anomaly.MetricSpend, base.Add(2*time.Minute))
	critical.Severity = anomaly.SeverityCritical
	repo.Create(ctx, critical)
	repo.Resolve(ctx, id1)

	t.Run("open filter", func(t *testing.T) {
		open := true
		got, total, err := repo.ListWithPagination(ctx, anomaly.Filter{Open: &open}, 10, 0)
		if err != nil {
			t.Fatalf("ListWithPagination() error = %v", err)
		}
		if total != 2 || len(got) != 2 {
			t.Errorf("got %d/%d, want 2 open anomalies", len(got), total)
		}
	})

	t.Run("resolved filter", func(t *testing.T) {
		open := false
		got, total, err := repo.ListWithPagination(ctx, anomaly.Filter{Open: &open}, 10, 0)
		if err != nil {
			t.Fatalf("ListWithPagination() error = %v", err)
		}
		if total != 1 || len(got) != 1 || got[0].SubjectID != "alice" {
			t.Errorf("got %d/%d, want only alice's resolved anomaly", len(got), total)
		}
	})

	t.Run("severity filter", func(t *testing.T) {
		got, total, err := repo.ListWithPagination(ctx, anomaly.Filter{Severity: "critical"}, 10, 0)
		if err != nil {
			t.Fatalf("ListWithPagination() error = %v", err)
		}
		if total != 1 || len(got) != 1 || got[0].SubjectID != "carol" {
			t.Errorf("got %d/%d, want only carol's critical anomaly", len(got), total)
		}
	})

	t.Run("pagination window", func(t *testing.T) {
		got, total, err := repo.ListWithPagination(ctx, anomaly.Filter{}, 2, 2)
		if err != nil {
			t.Fatalf("ListWithPagination() error = %v", err)
		}
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
		if len(got) != 1 {
			t.Errorf("page of size 2 at offset 2 has %d rows, want 1", len(got))
		}
	})
}

func TestAnomalyRepository_CountOpenBySeverity(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewAnomalyRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	repo.Create(ctx, storedAnomaly("alice", anomaly.MetricTokens, base))
	repo.Create(ctx, storedAnomaly("bob", anomaly.MetricRequests, base))
	critical := storedAnomaly("carol", anomaly.MetricSpend, base)
	critical.Severity = anomaly.SeverityCritical
	id, _ := repo.Create(ctx, critical)
	repo.Resolve(ctx, id)

	counts, err := repo.CountOpenBySeverity(ctx)
	if err != nil {
		t.Fatalf("CountOpenBySeverity() error = %v", err)
	}
	if counts["warning"] != 2 {
		t.Errorf("warning count = %d, want 2", counts["warning"])
	}
	if counts["critical"] != 0 {
		t.Errorf("critical count = %d, want 0 after resolve", counts["critical"])
	}
}
