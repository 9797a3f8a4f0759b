package dto

// UpdateDetectionConfigRequest carries replacement detection parameters
type UpdateDetectionConfigRequest struct {
	MaxSpendCentsPerCycle int64   `json:"max_spend_cents_per_cycle" validate:"gte=0"`
	MaxRequestsPerDay     int64   `json:"max_requests_per_day" validate:"gte=0"`
	MaxTokensPerDay       int64   `json:"max_tokens_per_day" validate:"gte=0"`
	ZScoreMultiplier      float64 `json:"zscore_multiplier" validate:"gt=0"`
	ZScoreLookbackDays    int     `json:"zscore_lookback_days" validate:"min=1,max=90"`
	SpikeMultiplier       float64 `json:"spike_multiplier" validate:"gt=1"`
	SpikeLookbackDays     int     `json:"spike_lookback_days" validate:"min=1,max=90"`
	DriftDaysAboveP75     int     `json:"drift_days_above_p75" validate:"min=1,max=30"`
}

// RunDetectionResponse summarizes a manually triggered run
type RunDetectionResponse struct {
	RunID         string `json:"run_id"`
	NewAnomalies  int    `json:"new_anomalies"`
	ResolvedCount int    `json:"resolved_count"`
	TotalOpen     int    `json:"total_open"`
	DurationMs    int64  `json:"duration_ms"`
}
