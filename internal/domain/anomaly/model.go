package anomaly

import "time"

// Anomaly represents a single detected usage deviation. Value, Threshold and
// Message are fixed at detection time and never updated in place.
type Anomaly struct {
	ID             int64       `json:"id"`
	SubjectKind    SubjectKind `json:"subject_kind"`
	SubjectID      string      `json:"subject_id,omitempty"`
	Type           Type        `json:"type"`
	Severity       Severity    `json:"severity"`
	Metric         Metric      `json:"metric"`
	Value          float64     `json:"value"`
	Threshold      float64     `json:"threshold"`
	Message        string      `json:"message"`
	DiagnosisModel string      `json:"diagnosis_model,omitempty"`
	DiagnosisKind  string      `json:"diagnosis_kind,omitempty"`
	DiagnosisDelta float64     `json:"diagnosis_delta,omitempty"`
	DetectedAt     time.Time   `json:"detected_at"`
	ResolvedAt     *time.Time  `json:"resolved_at,omitempty"`
	AlertedAt      *time.Time  `json:"alerted_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Type identifies the detector class that produced an anomaly
type Type string

const (
	TypeThreshold Type = "threshold"
	TypeZScore    Type = "zscore"
	TypeTrend     Type = "trend"
)

// Metric identifies the measured quantity
type Metric string

const (
	MetricSpend      Metric = "spend"
	MetricRequests   Metric = "requests"
	MetricTokens     Metric = "tokens"
	MetricModelShift Metric = "model_shift"
)

// Severity levels
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// SubjectKind distinguishes per-member anomalies from team-wide ones
type SubjectKind string

const (
	SubjectUser SubjectKind = "user"
	SubjectTeam SubjectKind = "team"
)

// Diagnosis kinds attached by the trend detector
const (
	DiagnosisSpike      = "spike"
	DiagnosisDrift      = "drift"
	DiagnosisModelShift = "model_shift"
)

// Key is the dedup identity of an anomaly. At most one open anomaly may
// exist per key at any time.
type Key struct {
	SubjectKind SubjectKind
	SubjectID   string
	Type        Type
	Metric      Metric
}

// Key returns the dedup key for the anomaly
func (a *Anomaly) Key() Key {
	return Key{
		SubjectKind: a.SubjectKind,
		SubjectID:   a.SubjectID,
		Type:        a.Type,
		Metric:      a.Metric,
	}
}

// IsOpen reports whether the anomaly is unresolved
func (a *Anomaly) IsOpen() bool {
	return a.ResolvedAt == nil
}

// Filter contains anomaly listing options
type Filter struct {
	SubjectID string
	Type      string
	Metric    string
	Severity  string
	Open      *bool
}
