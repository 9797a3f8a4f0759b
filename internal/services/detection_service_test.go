package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/usagesentry/usagesentry/internal/detector"
	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/domain/detection"
	"github.com/usagesentry/usagesentry/internal/testutil"
)

// stubDetector returns a fixed set of anomalies and records the config it
// was handed
type stubDetector struct {
	name      string
	anomalies []*anomaly.Anomaly
	err       error
	gotCfg    *detection.Config
}

func (d *stubDetector) Name() string { return d.name }

func (d *stubDetector) Detect(ctx context.Context, cfg detection.Config, now time.Time) ([]*anomaly.Anomaly, error) {
	c := cfg
	d.gotCfg = &c
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

func testAnomaly(subject string, metric anomaly.Metric) *anomaly.Anomaly {
	return &anomaly.Anomaly{
		SubjectKind: anomaly.SubjectUser,
		SubjectID:   subject,
		Type:        anomaly.TypeThreshold,
		Metric:      metric,
		Severity:    anomaly.SeverityWarning,
		Value:       100,
		Threshold:   50,
		Message:     "over limit",
		DetectedAt:  time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC),
	}
}

func newTestDetectionService(detectors ...detector.Detector) (*DetectionService, *testutil.MockAnomalyRepository, *testutil.MockConfigRepository) {
	anomalies := testutil.NewMockAnomalyRepository()
	configs := testutil.NewMockConfigRepository()
	svc := NewDetectionService(detectors, anomalies, configs, testutil.NewTestLogger())
	return svc, anomalies, configs
}

func TestRunDetection_PersistsNewAnomalies(t *testing.T) {
	stub := &stubDetector{name: "stub", anomalies: []*anomaly.Anomaly{
		testAnomaly("alice", anomaly.MetricSpend),
		testAnomaly("bob", anomaly.MetricTokens),
	}}
	svc, anomalies, _ := newTestDetectionService(stub)

	result, err := svc.RunDetection(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunDetection() error = %v", err)
	}

	if len(result.NewAnomalies) != 2 {
		t.Fatalf("got %d new anomalies, want 2", len(result.NewAnomalies))
	}
	if result.ResolvedCount != 0 || result.TotalOpen != 2 {
		t.Errorf("resolved/open = %d/%d, want 0/2", result.ResolvedCount, result.TotalOpen)
	}
	if result.RunID == "" {
		t.Error("run ID should be assigned")
	}
	for _, a := range result.NewAnomalies {
		if a.ID == 0 {
			t.Errorf("anomaly for %s has no assigned ID", a.SubjectID)
		}
	}
	if anomalies.OpenCount() != 2 {
		t.Errorf("store has %d open anomalies, want 2", anomalies.OpenCount())
	}
}

func TestRunDetection_IdempotentRerun(t *testing.T) {
	stub := &stubDetector{name: "stub", anomalies: []*anomaly.Anomaly{
		testAnomaly("alice", anomaly.MetricSpend),
		testAnomaly("bob", anomaly.MetricTokens),
	}}
	svc, anomalies, _ := newTestDetectionService(stub)

	if _, err := svc.RunDetection(context.Background(), nil); err != nil {
		t.Fatalf("first RunDetection() error = %v", err)
	}

	result, err := svc.RunDetection(context.Background(), nil)
	if err != nil {
		t.Fatalf("second RunDetection() error = %v", err)
	}
	if len(result.NewAnomalies) != 0 || result.ResolvedCount != 0 {
		t.Errorf("rerun produced %d new, %d resolved, want 0/0",
			len(result.NewAnomalies), result.ResolvedCount)
	}
	if result.TotalOpen != 2 {
		t.Errorf("total open = %d, want 2", result.TotalOpen)
	}
	if anomalies.NextID != 3 {
		t.Errorf("rerun inserted rows, next ID = %d, want 3", anomalies.NextID)
	}
}

func TestRunDetection_DedupWithinRun(t *testing.T) {
	// Two detections with the same subject, type and metric collapse
	// into one persisted anomaly
	dup := testAnomaly("alice", anomaly.MetricSpend)
	stub := &stubDetector{name: "stub", anomalies: []*anomaly.Anomaly{dup, dup}}
	svc, anomalies, _ := newTestDetectionService(stub)

	result, err := svc.RunDetection(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunDetection() error = %v", err)
	}
	if len(result.NewAnomalies) != 1 {
		t.Errorf("got %d new anomalies, want 1 after dedup", len(result.NewAnomalies))
	}
	if anomalies.OpenCount() != 1 {
		t.Errorf("store has %d open anomalies, want 1", anomalies.OpenCount())
	}
}

func TestRunDetection_AutoResolve(t *testing.T) {
	stub := &stubDetector{name: "stub", anomalies: []*anomaly.Anomaly{
		testAnomaly("alice", anomaly.MetricSpend),
		testAnomaly("bob", anomaly.MetricTokens),
	}}
	svc, anomalies, _ := newTestDetectionService(stub)

	if _, err := svc.RunDetection(context.Background(), nil); err != nil {
		t.Fatalf("first RunDetection() error = %v", err)
	}

	// bob's condition cleared; his open anomaly should auto-resolve
	stub.anomalies = stub.anomalies[:1]

	result, err := svc.RunDetection(context.Background(), nil)
	if err != nil {
		t.Fatalf("second RunDetection() error = %v", err)
	}
	if result.ResolvedCount != 1 {
		t.Errorf("resolved = %d, want 1", result.ResolvedCount)
	}
	if result.TotalOpen != 1 {
		t.Errorf("total open = %d, want 1", result.TotalOpen)
	}
	if anomalies.OpenCount() != 1 {
		t.Errorf("store has %d open anomalies, want 1", anomalies.OpenCount())
	}
}

func TestRunDetection_DetectorFailureAbortsWithoutWrites(t *testing.T) {
	ok := &stubDetector{name: "ok", anomalies: []*anomaly.Anomaly{
		testAnomaly("alice", anomaly.MetricSpend),
	}}
	failing := &stubDetector{name: "failing", err: errors.New("query timeout")}
	svc, anomalies, _ := newTestDetectionService(ok, failing)

	// Pre-existing open anomaly that must survive the aborted run
	existing := testAnomaly("carol", anomaly.MetricRequests)
	if _, err := anomalies.Create(context.Background(), existing); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := svc.RunDetection(context.Background(), nil); err == nil {
		t.Fatal("RunDetection() expected error from failing detector")
	}
	if anomalies.OpenCount() != 1 {
		t.Errorf("store has %d open anomalies, want only the pre-existing 1", anomalies.OpenCount())
	}
	if anomalies.NextID != 2 {
		t.Errorf("aborted run inserted rows, next ID = %d, want 2", anomalies.NextID)
	}
}

func TestRunDetection_ConfigSelection(t *testing.T) {
	t.Run("override skips the store", func(t *testing.T) {
		stub := &stubDetector{name: "stub"}
		svc, _, configs := newTestDetectionService(stub)
		configs.GetError = errors.New("store should not be read")

		override := detection.DefaultConfig()
		override.MaxRequestsPerDay = 777

		if _, err := svc.RunDetection(context.Background(), &override); err != nil {
			t.Fatalf("RunDetection() error = %v", err)
		}
		if stub.gotCfg == nil || stub.gotCfg.MaxRequestsPerDay != 777 {
			t.Errorf("detector config = %+v, want override with 777", stub.gotCfg)
		}
	})

	t.Run("nil override reads the stored config", func(t *testing.T) {
		stub := &stubDetector{name: "stub"}
		svc, _, configs := newTestDetectionService(stub)
		configs.Cfg.MaxRequestsPerDay = 123

		if _, err := svc.RunDetection(context.Background(), nil); err != nil {
			t.Fatalf("RunDetection() error = %v", err)
		}
		if stub.gotCfg == nil || stub.gotCfg.MaxRequestsPerDay != 123 {
			t.Errorf("detector config = %+v, want stored with 123", stub.gotCfg)
		}
	})

	t.Run("config load failure aborts", func(t *testing.T) {
		stub := &stubDetector{name: "stub"}
		svc, _, configs := newTestDetectionService(stub)
		configs.GetError = errors.New("unavailable")

		if _, err := svc.RunDetection(context.Background(), nil); err == nil {
			t.Fatal("RunDetection() expected error when the config load fails")
		}
	})
}
