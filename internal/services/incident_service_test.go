package services

import (
	"context"
	"testing"
	"time"

	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/domain/incident"
	"github.com/usagesentry/usagesentry/internal/testutil"
)

var incidentBase = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func newTestIncidentService(now time.Time) (*IncidentService, *testutil.MockIncidentRepository, *testutil.MockAnomalyRepository) {
	incidents := testutil.NewMockIncidentRepository()
	anomalies := testutil.NewMockAnomalyRepository()
	svc := NewIncidentService(incidents, anomalies, testutil.NewTestLogger())
	svc.now = func() time.Time { return now }
	return svc, incidents, anomalies
}

func TestCreateForAnomaly(t *testing.T) {
	svc, incidents, _ := newTestIncidentService(incidentBase.Add(2 * time.Minute))

	a := testAnomaly("alice", anomaly.MetricSpend)
	a.ID = 7
	a.DetectedAt = incidentBase

	inc, err := svc.CreateForAnomaly(context.Background(), a)
	if err != nil {
		t.Fatalf("CreateForAnomaly() error = %v", err)
	}

	if inc.ID == 0 {
		t.Error("incident should have an assigned ID")
	}
	if inc.AnomalyID != 7 || inc.SubjectID != "alice" {
		t.Errorf("incident links anomaly %d subject %s, want 7/alice", inc.AnomalyID, inc.SubjectID)
	}
	if inc.Status != incident.StatusOpen {
		t.Errorf("status = %s, want open", inc.Status)
	}
	if inc.MTTDMinutes == nil || *inc.MTTDMinutes != 2 {
		t.Errorf("MTTD = %v, want 2 minutes", inc.MTTDMinutes)
	}
	if _, err := incidents.GetByID(context.Background(), inc.ID); err != nil {
		t.Errorf("incident not persisted: %v", err)
	}
}

func TestCreateForAnomaly_ClampsNegativeMTTD(t *testing.T) {
	svc, _, _ := newTestIncidentService(incidentBase)

	a := testAnomaly("alice", anomaly.MetricSpend)
	a.DetectedAt = incidentBase.Add(10 * time.Minute)

	inc, err := svc.CreateForAnomaly(context.Background(), a)
	if err != nil {
		t.Fatalf("CreateForAnomaly() error = %v", err)
	}
	if inc.MTTDMinutes == nil || *inc.MTTDMinutes != 0 {
		t.Errorf("MTTD = %v, want clamped to 0", inc.MTTDMinutes)
	}
}

func TestMarkAlerted(t *testing.T) {
	svc, incidents, anomalies := newTestIncidentService(incidentBase)

	anomalyID, err := anomalies.Create(context.Background(), testAnomaly("alice", anomaly.MetricSpend))
	if err != nil {
		t.Fatalf("seed anomaly: %v", err)
	}
	incID, err := incidents.Create(context.Background(), &incident.Incident{
		AnomalyID:  anomalyID,
		Status:     incident.StatusOpen,
		DetectedAt: incidentBase,
	})
	if err != nil {
		t.Fatalf("seed incident: %v", err)
	}

	if err := svc.MarkAlerted(context.Background(), incID); err != nil {
		t.Fatalf("MarkAlerted() error = %v", err)
	}

	inc, _ := incidents.GetByID(context.Background(), incID)
	if inc.Status != incident.StatusAlerted {
		t.Errorf("status = %s, want alerted", inc.Status)
	}
	if inc.AlertedAt == nil || !inc.AlertedAt.Equal(incidentBase) {
		t.Errorf("alerted at = %v, want %v", inc.AlertedAt, incidentBase)
	}
	a, _ := anomalies.GetByID(context.Background(), anomalyID)
	if a.AlertedAt == nil {
		t.Error("anomaly should carry the alert timestamp too")
	}
}

func TestMarkAlerted_NoStatusRegression(t *testing.T) {
	svc, incidents, _ := newTestIncidentService(incidentBase)

	incID, _ := incidents.Create(context.Background(), &incident.Incident{
		AnomalyID:  1,
		Status:     incident.StatusResolved,
		DetectedAt: incidentBase,
	})

	if err := svc.MarkAlerted(context.Background(), incID); err != nil {
		t.Fatalf("MarkAlerted() error = %v", err)
	}
	inc, _ := incidents.GetByID(context.Background(), incID)
	if inc.Status != incident.StatusResolved {
		t.Errorf("status regressed to %s, want resolved", inc.Status)
	}
}

func TestAcknowledge_ComputesMTTI(t *testing.T) {
	svc, incidents, _ := newTestIncidentService(incidentBase.Add(15 * time.Minute))

	alertedAt := incidentBase
	incID, _ := incidents.Create(context.Background(), &incident.Incident{
		AnomalyID:  1,
		Status:     incident.StatusAlerted,
		DetectedAt: incidentBase,
		AlertedAt:  &alertedAt,
	})

	if err := svc.Acknowledge(context.Background(), incID); err != nil {
		t.Fatalf("Acknowledge() error = %v", err)
	}

	inc, _ := incidents.GetByID(context.Background(), incID)
	if inc.Status != incident.StatusAcknowledged {
		t.Errorf("status = %s, want acknowledged", inc.Status)
	}
	if inc.MTTIMinutes == nil || *inc.MTTIMinutes != 15 {
		t.Errorf("MTTI = %v, want 15 minutes", inc.MTTIMinutes)
	}
}

func TestAcknowledge_NeverAlerted(t *testing.T) {
	svc, incidents, _ := newTestIncidentService(incidentBase.Add(time.Hour))

	incID, _ := incidents.Create(context.Background(), &incident.Incident{
		AnomalyID:  1,
		Status:     incident.StatusOpen,
		DetectedAt: incidentBase,
	})

	if err := svc.Acknowledge(context.Background(), incID); err != nil {
		t.Fatalf("Acknowledge() error = %v", err)
	}

	inc, _ := incidents.GetByID(context.Background(), incID)
	if inc.Status != incident.StatusAcknowledged {
		t.Errorf("status = %s, want acknowledged", inc.Status)
	}
	if inc.MTTIMinutes != nil {
		t.Errorf("MTTI = %v, want nil when the incident was never alerted", *inc.MTTIMinutes)
	}
}

func TestResolve_ComputesMTTR(t *testing.T) {
	svc, incidents, _ := newTestIncidentService(incidentBase.Add(30 * time.Minute))

	incID, _ := incidents.Create(context.Background(), &incident.Incident{
		AnomalyID:  1,
		Status:     incident.StatusOpen,
		DetectedAt: incidentBase,
	})

	if err := svc.Resolve(context.Background(), incID); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	inc, _ := incidents.GetByID(context.Background(), incID)
	if inc.Status != incident.StatusResolved {
		t.Errorf("status = %s, want resolved", inc.Status)
	}
	if inc.MTTRMinutes == nil || *inc.MTTRMinutes != 30 {
		t.Errorf("MTTR = %v, want 30 minutes", inc.MTTRMinutes)
	}
	if inc.ResolvedAt == nil {
		t.Error("resolved timestamp should be set")
	}
}

func TestLifecycle_UnknownIDIsNoOp(t *testing.T) {
	svc, _, _ := newTestIncidentService(incidentBase)

	if err := svc.MarkAlerted(context.Background(), 999); err != nil {
		t.Errorf("MarkAlerted(999) error = %v, want nil", err)
	}
	if err := svc.Acknowledge(context.Background(), 999); err != nil {
		t.Errorf("Acknowledge(999) error = %v, want nil", err)
	}
	if err := svc.Resolve(context.Background(), 999); err != nil {
		t.Errorf("Resolve(999) error = %v, want nil", err)
	}
}

func TestAcknowledge_AfterResolveIsNoOp(t *testing.T) {
	svc, incidents, _ := newTestIncidentService(incidentBase)

	incID, _ := incidents.Create(context.Background(), &incident.Incident{
		AnomalyID:  1,
		Status:     incident.StatusResolved,
		DetectedAt: incidentBase,
	})

	if err := svc.Acknowledge(context.Background(), incID); err != nil {
		t.Fatalf("Acknowledge() error = %v", err)
	}
	inc, _ := incidents.GetByID(context.Background(), incID)
	if inc.Status != incident.StatusResolved {
		t.Errorf("status regressed to %s, want resolved", inc.Status)
	}
	if inc.AcknowledgedAt != nil {
		t.Error("acknowledged timestamp should not be set on a resolved incident")
	}
}
