package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/usagesentry/usagesentry/internal/detector"
	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/domain/detection"
	"github.com/usagesentry/usagesentry/internal/domain/incident"
	"github.com/usagesentry/usagesentry/internal/notify"
	"github.com/usagesentry/usagesentry/internal/services"
	"github.com/usagesentry/usagesentry/internal/testutil"
)

type stubDetector struct {
	anomalies []*anomaly.Anomaly
	err       error
}

func (d *stubDetector) Name() string { return "stub" }

func (d *stubDetector) Detect(ctx context.Context, cfg detection.Config, now time.Time) ([]*anomaly.Anomaly, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := make([]*anomaly.Anomaly, len(d.anomalies))
	for i, a := range d.anomalies {
		copied := *a
		out[i] = &copied
	}
	return out, nil
}

func runnerAnomaly(subject string, metric anomaly.Metric, sev anomaly.Severity) *anomaly.Anomaly {
	return &anomaly.Anomaly{
		SubjectKind: anomaly.SubjectUser,
		SubjectID:   subject,
		Type:        anomaly.TypeThreshold,
		Metric:      metric,
		Severity:    sev,
		Value:       100,
		Threshold:   50,
		Message:     "over limit",
		DetectedAt:  time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC),
	}
}

type runnerFixture struct {
	runner    *DetectionRunner
	incidents *testutil.MockIncidentRepository
	channel   *testutil.MockChannel
}

func newRunnerFixture(minSeverity anomaly.Severity, stub *stubDetector) *runnerFixture {
	log := testutil.NewTestLogger()
	anomalies := testutil.NewMockAnomalyRepository()
	incidents := testutil.NewMockIncidentRepository()
	channel := &testutil.MockChannel{ChannelName: "slack"}

	detectionSvc := services.NewDetectionService([]detector.Detector{stub}, anomalies, testutil.NewMockConfigRepository(), log)
	incidentSvc := services.NewIncidentService(incidents, anomalies, log)
	alertSvc := services.NewAlertService([]notify.Channel{channel}, incidentSvc, log)

	return &runnerFixture{
		runner:    NewDetectionRunner(detectionSvc, incidentSvc, alertSvc, minSeverity, log),
		incidents: incidents,
		channel:   channel,
	}
}

func TestRun_OpensAndAlertsIncidents(t *testing.T) {
	stub := &stubDetector{anomalies: []*anomaly.Anomaly{
		runnerAnomaly("alice", anomaly.MetricSpend, anomaly.SeverityWarning),
	}}
	f := newRunnerFixture(anomaly.SeverityWarning, stub)

	result, err := f.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.NewAnomalies) != 1 {
		t.Fatalf("got %d new anomalies, want 1", len(result.NewAnomalies))
	}

	if len(f.incidents.Incidents) != 1 {
		t.Fatalf("got %d incidents, want 1", len(f.incidents.Incidents))
	}
	inc, _ := f.incidents.GetByID(context.Background(), 1)
	if inc.Status != incident.StatusAlerted {
		t.Errorf("incident status = %s, want alerted after dispatch", inc.Status)
	}
	if len(f.channel.Sent) != 1 {
		t.Errorf("channel got %d alerts, want 1", len(f.channel.Sent))
	}
}

func TestRun_SeverityFilter(t *testing.T) {
	stub := &stubDetector{anomalies: []*anomaly.Anomaly{
		runnerAnomaly("alice", anomaly.MetricSpend, anomaly.SeverityWarning),
		runnerAnomaly("bob", anomaly.MetricTokens, anomaly.SeverityCritical),
	}}
	f := newRunnerFixture(anomaly.SeverityCritical, stub)

	result, err := f.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Both anomalies are recorded, but only the critical one gets an incident
	if len(result.NewAnomalies) != 2 {
		t.Fatalf("got %d new anomalies, want 2", len(result.NewAnomalies))
	}
	if len(f.incidents.Incidents) != 1 {
		t.Fatalf("got %d incidents, want 1", len(f.incidents.Incidents))
	}
	inc, _ := f.incidents.GetByID(context.Background(), 1)
	if inc.SubjectID != "bob" {
		t.Errorf("incident subject = %s, want bob", inc.SubjectID)
	}
}

func TestRun_IncidentFailureContinuesBatch(t *testing.T) {
	stub := &stubDetector{anomalies: []*anomaly.Anomaly{
		runnerAnomaly("alice", anomaly.MetricSpend, anomaly.SeverityWarning),
		runnerAnomaly("bob", anomaly.MetricTokens, anomaly.SeverityWarning),
	}}
	f := newRunnerFixture(anomaly.SeverityWarning, stub)
	f.incidents.CreateError = errors.New("insert failed")

	result, err := f.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, incident failures should not abort", err)
	}
	if len(result.NewAnomalies) != 2 {
		t.Errorf("got %d new anomalies, want 2", len(result.NewAnomalies))
	}
	if len(f.channel.Sent) != 0 {
		t.Errorf("channel got %d alerts, want 0 without incidents", len(f.channel.Sent))
	}
}

func TestRun_DetectionFailurePropagates(t *testing.T) {
	stub := &stubDetector{err: errors.New("query timeout")}
	f := newRunnerFixture(anomaly.SeverityWarning, stub)

	if _, err := f.runner.Run(context.Background()); err == nil {
		t.Fatal("Run() expected error from detection")
	}
	if len(f.incidents.Incidents) != 0 {
		t.Errorf("got %d incidents, want 0", len(f.incidents.Incidents))
	}
}

func TestSeverityAtLeast(t *testing.T) {
	tests := []struct {
		s, min anomaly.Severity
		want   bool
	}{
		{anomaly.SeverityWarning, anomaly.SeverityWarning, true},
		{anomaly.SeverityCritical, anomaly.SeverityWarning, true},
		{anomaly.SeverityWarning, anomaly.SeverityCritical, false},
		{anomaly.SeverityCritical, anomaly.SeverityCritical, true},
	}

	for _, tt := range tests {
		if got := severityAtLeast(tt.s, tt.min); got != tt.want {
			t.Errorf("severityAtLeast(%s, %s) = %v, want %v", tt.s, tt.min, got, tt.want)
		}
	}
}
