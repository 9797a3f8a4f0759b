package dto

import "github.com/usagesentry/usagesentry/internal/domain/usage"

// UsageSummaryResponse aggregates per-member usage over a window
type UsageSummaryResponse struct {
	Days    int                  `json:"days"`
	Members []usage.MemberTotals `json:"members"`
}
