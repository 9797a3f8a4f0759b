package usage

import "time"

// Member is a team member tracked by the upstream usage provider
type Member struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is a single usage record pulled from the provider API
type Event struct {
	ID           string    `json:"id"`
	MemberID     string    `json:"member_id"`
	Model        string    `json:"model"`
	Requests     int64     `json:"requests"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	SpendCents   int64     `json:"spend_cents"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// TotalTokens returns input plus output tokens for the event
func (e *Event) TotalTokens() int64 {
	return e.InputTokens + e.OutputTokens
}

// MemberSpend is a per-member spend aggregate over a billing cycle
type MemberSpend struct {
	MemberID   string `json:"member_id"`
	SpendCents int64  `json:"spend_cents"`
}

// MemberTotals is a per-member aggregate over an arbitrary window
type MemberTotals struct {
	MemberID   string `json:"member_id"`
	Requests   int64  `json:"requests"`
	Tokens     int64  `json:"tokens"`
	SpendCents int64  `json:"spend_cents"`
}

// MemberDay is a per-member, per-day aggregate. Day is the date in
// YYYY-MM-DD form of the events it pools.
type MemberDay struct {
	MemberID string `json:"member_id"`
	Day      string `json:"day"`
	Requests int64  `json:"requests"`
	Tokens   int64  `json:"tokens"`
}

// ModelUsage is a per-member, per-model aggregate over a window
type ModelUsage struct {
	MemberID string `json:"member_id"`
	Model    string `json:"model"`
	Requests int64  `json:"requests"`
	Tokens   int64  `json:"tokens"`
}
