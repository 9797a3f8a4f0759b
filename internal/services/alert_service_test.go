package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/domain/incident"
	"github.com/usagesentry/usagesentry/internal/notify"
	"github.com/usagesentry/usagesentry/internal/testutil"
)

func newTestAlertService(channels ...notify.Channel) (*AlertService, *testutil.MockIncidentRepository, *testutil.MockAnomalyRepository) {
	incidents := testutil.NewMockIncidentRepository()
	anomalies := testutil.NewMockAnomalyRepository()
	incidentSvc := NewIncidentService(incidents, anomalies, testutil.NewTestLogger())
	svc := NewAlertService(channels, incidentSvc, testutil.NewTestLogger())
	return svc, incidents, anomalies
}

func seedOpenIncident(t *testing.T, incidents *testutil.MockIncidentRepository, anomalies *testutil.MockAnomalyRepository) (*anomaly.Anomaly, *incident.Incident) {
	t.Helper()

	a := testAnomaly("alice", anomaly.MetricSpend)
	id, err := anomalies.Create(context.Background(), a)
	if err != nil {
		t.Fatalf("seed anomaly: %v", err)
	}
	a.ID = id

	inc := &incident.Incident{
		AnomalyID:  id,
		SubjectID:  a.SubjectID,
		Status:     incident.StatusOpen,
		DetectedAt: time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC),
	}
	incID, err := incidents.Create(context.Background(), inc)
	if err != nil {
		t.Fatalf("seed incident: %v", err)
	}
	inc.ID = incID
	return a, inc
}

func TestDispatch_PartialChannelFailureStillAlerts(t *testing.T) {
	failing := &testutil.MockChannel{ChannelName: "slack", SendError: errors.New("webhook 500")}
	working := &testutil.MockChannel{ChannelName: "email"}
	svc, incidents, anomalies := newTestAlertService(failing, working)
	a, inc := seedOpenIncident(t, incidents, anomalies)

	ok, err := svc.Dispatch(context.Background(), a, inc)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if !ok {
		t.Fatal("Dispatch() = false, want true when one channel succeeds")
	}

	if len(working.Sent) != 1 {
		t.Fatalf("working channel got %d alerts, want 1", len(working.Sent))
	}
	sent := working.Sent[0]
	if sent.Subject != "alice" || sent.Metric != anomaly.MetricSpend {
		t.Errorf("alert carries %s/%s, want alice/spend", sent.Subject, sent.Metric)
	}
	if sent.Body != a.Message || sent.Severity != a.Severity {
		t.Errorf("alert body/severity = %q/%s, want anomaly's", sent.Body, sent.Severity)
	}
	if sent.DeliveryID == "" {
		t.Error("alert should carry a delivery ID")
	}

	got, _ := incidents.GetByID(context.Background(), inc.ID)
	if got.Status != incident.StatusAlerted {
		t.Errorf("incident status = %s, want alerted", got.Status)
	}
	storedAnomaly, _ := anomalies.GetByID(context.Background(), a.ID)
	if storedAnomaly.AlertedAt == nil {
		t.Error("anomaly should be marked alerted")
	}
}

func TestDispatch_AllChannelsFail(t *testing.T) {
	ch1 := &testutil.MockChannel{ChannelName: "slack", SendError: errors.New("down")}
	ch2 := &testutil.MockChannel{ChannelName: "email", SendError: errors.New("also down")}
	svc, incidents, anomalies := newTestAlertService(ch1, ch2)
	a, inc := seedOpenIncident(t, incidents, anomalies)

	ok, err := svc.Dispatch(context.Background(), a, inc)
	if err != nil {
		t.Fatalf("Dispatch() error = %v, channel failures must not propagate", err)
	}
	if ok {
		t.Fatal("Dispatch() = true, want false when every channel fails")
	}

	got, _ := incidents.GetByID(context.Background(), inc.ID)
	if got.Status != incident.StatusOpen {
		t.Errorf("incident status = %s, want still open", got.Status)
	}
}

func TestDispatch_NoChannelsConfigured(t *testing.T) {
	svc, incidents, anomalies := newTestAlertService()
	a, inc := seedOpenIncident(t, incidents, anomalies)

	ok, err := svc.Dispatch(context.Background(), a, inc)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if ok {
		t.Fatal("Dispatch() = true, want false with no channels")
	}
}
