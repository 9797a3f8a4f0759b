package client

import "time"

// Anomaly is an anomaly record as returned by the API
type Anomaly struct {
	ID             int64      `json:"id"`
	SubjectKind    string     `json:"subject_kind"`
	SubjectID      string     `json:"subject_id,omitempty"`
	Type           string     `json:"type"`
	Severity       string     `json:"severity"`
	Metric         string     `json:"metric"`
	Value          float64    `json:"value"`
	Threshold      float64    `json:"threshold"`
	Message        string     `json:"message"`
	DiagnosisModel string     `json:"diagnosis_model,omitempty"`
	DiagnosisKind  string     `json:"diagnosis_kind,omitempty"`
	DetectedAt     time.Time  `json:"detected_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	AlertedAt      *time.Time `json:"alerted_at,omitempty"`
}

// Incident is an incident record as returned by the API
type Incident struct {
	ID             int64      `json:"id"`
	AnomalyID      int64      `json:"anomaly_id"`
	SubjectKind    string     `json:"subject_kind"`
	SubjectID      string     `json:"subject_id,omitempty"`
	Status         string     `json:"status"`
	DetectedAt     time.Time  `json:"detected_at"`
	AlertedAt      *time.Time `json:"alerted_at,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	MTTDMinutes    *float64   `json:"mttd_minutes,omitempty"`
	MTTIMinutes    *float64   `json:"mtti_minutes,omitempty"`
	MTTRMinutes    *float64   `json:"mttr_minutes,omitempty"`
}

// DetectionConfig mirrors the server-side detection parameters
type DetectionConfig struct {
	MaxSpendCentsPerCycle int64   `json:"max_spend_cents_per_cycle"`
	MaxRequestsPerDay     int64   `json:"max_requests_per_day"`
	MaxTokensPerDay       int64   `json:"max_tokens_per_day"`
	ZScoreMultiplier      float64 `json:"zscore_multiplier"`
	ZScoreLookbackDays    int     `json:"zscore_lookback_days"`
	SpikeMultiplier       float64 `json:"spike_multiplier"`
	SpikeLookbackDays     int     `json:"spike_lookback_days"`
	DriftDaysAboveP75     int     `json:"drift_days_above_p75"`
}

// RunResult summarizes a detection run triggered through the API
type RunResult struct {
	RunID         string `json:"run_id"`
	NewAnomalies  int    `json:"new_anomalies"`
	ResolvedCount int    `json:"resolved_count"`
	TotalOpen     int    `json:"total_open"`
	DurationMs    int64  `json:"duration_ms"`
}

// MemberTotals is a per-member usage aggregate
type MemberTotals struct {
	MemberID   string `json:"member_id"`
	Requests   int64  `json:"requests"`
	Tokens     int64  `json:"tokens"`
	SpendCents int64  `json:"spend_cents"`
}

// UsageSummary aggregates usage over a window
type UsageSummary struct {
	Days    int            `json:"days"`
	Members []MemberTotals `json:"members"`
}

// anomalyPage is a paginated anomaly listing
type anomalyPage struct {
	Data       []Anomaly `json:"data"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalItems int64     `json:"total_items"`
	TotalPages int       `json:"total_pages"`
}

// incidentPage is a paginated incident listing
type incidentPage struct {
	Data       []Incident `json:"data"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalItems int64      `json:"total_items"`
	TotalPages int        `json:"total_pages"`
}
