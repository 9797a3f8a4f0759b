package detection

// Config holds the tunable detection parameters. It is persisted as a
// single typed row and read fresh at the start of every run. A limit of
// zero disables the corresponding threshold rule.
type Config struct {
	MaxSpendCentsPerCycle int64   `json:"max_spend_cents_per_cycle" validate:"gte=0"`
	MaxRequestsPerDay     int64   `json:"max_requests_per_day" validate:"gte=0"`
	MaxTokensPerDay       int64   `json:"max_tokens_per_day" validate:"gte=0"`
	ZScoreMultiplier      float64 `json:"zscore_multiplier" validate:"gt=0"`
	ZScoreLookbackDays    int     `json:"zscore_lookback_days" validate:"min=1,max=90"`
	SpikeMultiplier       float64 `json:"spike_multiplier" validate:"gt=1"`
	SpikeLookbackDays     int     `json:"spike_lookback_days" validate:"min=1,max=90"`
	DriftDaysAboveP75     int     `json:"drift_days_above_p75" validate:"min=1,max=30"`
}

// DefaultConfig returns the baseline detection parameters
func DefaultConfig() Config {
	return Config{
		MaxSpendCentsPerCycle: 50000, // $500 per cycle
		MaxRequestsPerDay:     2000,
		MaxTokensPerDay:       20000000,
		ZScoreMultiplier:      2.0,
		ZScoreLookbackDays:    1,
		SpikeMultiplier:       3.0,
		SpikeLookbackDays:     7,
		DriftDaysAboveP75:     3,
	}
}

// ExpensiveModels is the curated set of higher-cost model identifiers
// monitored by the model-cost-shift check.
var ExpensiveModels = map[string]bool{
	"claude-3-opus": true,
	"gpt-4":         true,
	"gpt-4-turbo":   true,
	"o1":            true,
	"gemini-ultra":  true,
}

// IsExpensiveModel reports whether the model identifier is in the
// monitored expensive set.
func IsExpensiveModel(model string) bool {
	return ExpensiveModels[model]
}
