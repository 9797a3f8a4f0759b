package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/domain/incident"
	"github.com/usagesentry/usagesentry/internal/pkg/errors"
	"github.com/usagesentry/usagesentry/internal/repository/postgres"
	"github.com/usagesentry/usagesentry/internal/testutil"
)

func storedIncident(anomalyID int64, detectedAt time.Time) *incident.Incident {
	mttd := 0.5
	return &incident.Incident{
		AnomalyID:   anomalyID,
		SubjectKind: anomaly.SubjectUser,
		SubjectID:   "alice",
		Status:      incident.StatusOpen,
		DetectedAt:  detectedAt,
		MTTDMinutes: &mttd,
		CreatedAt:   detectedAt,
		UpdatedAt:   detectedAt,
	}
}

func TestIncidentRepository_CreateAndGet(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewIncidentRepository(db)
	ctx := context.Background()

	detectedAt := time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)
	id, err := repo.Create(ctx, storedIncident(42, detectedAt))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.AnomalyID != 42 || got.SubjectID != "alice" {
		t.Errorf("got anomaly %d subject %s, want 42/alice", got.AnomalyID, got.SubjectID)
	}
	if got.Status != incident.StatusOpen {
		t.Errorf("status = %s, want open", got.Status)
	}
	if got.MTTDMinutes == nil || *got.MTTDMinutes != 0.5 {
		t.Errorf("MTTD = %v, want 0.5", got.MTTDMinutes)
	}
	if got.MTTIMinutes != nil || got.MTTRMinutes != nil {
		t.Error("MTTI/MTTR should be nil on a fresh incident")
	}
	if !got.DetectedAt.Equal(detectedAt) {
		t.Errorf("detected at = %v, want %v", got.DetectedAt, detectedAt)
	}

	byAnomaly, err := repo.GetByAnomalyID(ctx, 42)
	if err != nil {
		t.Fatalf("GetByAnomalyID() error = %v", err)
	}
	if byAnomaly.ID != id {
		t.Errorf("GetByAnomalyID() returned incident %d, want %d", byAnomaly.ID, id)
	}
}

func TestIncidentRepository_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewIncidentRepository(db)
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, 999); !errors.IsNotFound(err) {
		t.Errorf("GetByID(999) error = %v, want not found", err)
	}
	if _, err := repo.GetByAnomalyID(ctx, 999); !errors.IsNotFound(err) {
		t.Errorf("GetByAnomalyID(999) error = %v, want not found", err)
	}
}

func TestIncidentRepository_Update(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewIncidentRepository(db)
	ctx := context.Background()

	detectedAt := time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)
	id, _ := repo.Create(ctx, storedIncident(1, detectedAt))

	inc, _ := repo.GetByID(ctx, id)
	alertedAt := detectedAt.Add(time.Minute)
	resolvedAt := detectedAt.Add(30 * time.Minute)
	mttr := 30.0
	inc.Status = incident.StatusResolved
	inc.AlertedAt = &alertedAt
	inc.ResolvedAt = &resolvedAt
	inc.MTTRMinutes = &mttr
	inc.UpdatedAt = resolvedAt

	if err := repo.Update(ctx, inc); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, id)
	if got.Status != incident.StatusResolved {
		t.Errorf("status = %s, want resolved", got.Status)
	}
	if got.AlertedAt == nil || !got.AlertedAt.Equal(alertedAt) {
		t.Errorf("alerted at = %v, want %v", got.AlertedAt, alertedAt)
	}
	if got.ResolvedAt == nil || !got.ResolvedAt.Equal(resolvedAt) {
		t.Errorf("resolved at = %v, want %v", got.ResolvedAt, resolvedAt)
	}
	if got.MTTRMinutes == nil || *got.MTTRMinutes != 30 {
		t.Errorf("MTTR = %v, want 30", got.MTTRMinutes)
	}
	if got.MTTDMinutes == nil || *got.MTTDMinutes != 0.5 {
		t.Errorf("MTTD = %v, want preserved 0.5", got.MTTDMinutes)
	}
}

func TestIncidentRepository_UpdateUnknown(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewIncidentRepository(db)

	inc := storedIncident(1, time.Now().UTC().Truncate(time.Second))
	inc.ID = 999
	if err := repo.Update(context.Background(), inc); !errors.IsNotFound(err) {
		t.Errorf("Update(unknown) error = %v, want not found", err)
	}
}

func TestIncidentRepository_ListAndCount(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewIncidentRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	repo.Create(ctx, storedIncident(1, base))
	second := storedIncident(2, base.Add(time.Minute))
	second.SubjectID = "bob"
	second.Status = incident.StatusResolved
	repo.Create(ctx, second)

	got, total, err := repo.ListWithPagination(ctx, incident.Filter{Status: "resolved"}, 10, 0)
	if err != nil {
		t.Fatalf("ListWithPagination() error = %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].SubjectID != "bob" {
		t.Errorf("got %d/%d, want only bob's resolved incident", len(got), total)
	}

	got, total, err = repo.ListWithPagination(ctx, incident.Filter{SubjectID: "alice"}, 10, 0)
	if err != nil {
		t.Fatalf("ListWithPagination() error = %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].AnomalyID != 1 {
		t.Errorf("got %d/%d, want only alice's incident", len(got), total)
	}

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if counts["open"] != 1 || counts["resolved"] != 1 {
		t.Errorf("counts = %v, want one open and one resolved", counts)
	}
}
