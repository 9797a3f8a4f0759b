package usage

import (
	"context"
	"time"
)

// Repository defines usage data access. Detectors consume the aggregate
// queries; the provider sync worker feeds the write path.
type Repository interface {
	// UpsertMembers inserts or updates team members
	UpsertMembers(ctx context.Context, members []Member) error

	// RecordEvents inserts usage events in one transaction, skipping
	// events whose ID was already recorded
	RecordEvents(ctx context.Context, events []Event) error

	// CycleSpend returns per-member spend since the start of the
	// current billing cycle
	CycleSpend(ctx context.Context, cycleStart time.Time) ([]MemberSpend, error)

	// Totals returns per-member aggregates over [from, to)
	Totals(ctx context.Context, from, to time.Time) ([]MemberTotals, error)

	// DailyTotals returns per-member, per-day aggregates over [from, to)
	DailyTotals(ctx context.Context, from, to time.Time) ([]MemberDay, error)

	// ModelBreakdown returns per-member, per-model aggregates over [from, to)
	ModelBreakdown(ctx context.Context, from, to time.Time) ([]ModelUsage, error)

	// TopModelByTokens returns the member's highest token-consuming model
	// over [from, to), or empty string if the member had no events
	TopModelByTokens(ctx context.Context, memberID string, from, to time.Time) (string, error)

	// LatestEventTime returns the newest recorded event time, used as the
	// provider sync cursor. Nil when no events are recorded.
	LatestEventTime(ctx context.Context) (*time.Time, error)
}
