package incident

import (
	"time"

	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
)

// Incident is the operational tracking record wrapping exactly one anomaly
// through its response lifecycle.
type Incident struct {
	ID             int64               `json:"id"`
	AnomalyID      int64               `json:"anomaly_id"`
	SubjectKind    anomaly.SubjectKind `json:"subject_kind"`
	SubjectID      string              `json:"subject_id,omitempty"`
	Status         Status              `json:"status"`
	DetectedAt     time.Time           `json:"detected_at"`
	AlertedAt      *time.Time          `json:"alerted_at,omitempty"`
	AcknowledgedAt *time.Time          `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time          `json:"resolved_at,omitempty"`
	MTTDMinutes    *float64            `json:"mttd_minutes,omitempty"`
	MTTIMinutes    *float64            `json:"mtti_minutes,omitempty"`
	MTTRMinutes    *float64            `json:"mttr_minutes,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at,omitempty"`
}

// Status is the incident lifecycle state
type Status string

const (
	StatusOpen         Status = "open"
	StatusAlerted      Status = "alerted"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// rank orders statuses for monotonicity checks
func (s Status) rank() int {
	switch s {
	case StatusOpen:
		return 0
	case StatusAlerted:
		return 1
	case StatusAcknowledged:
		return 2
	case StatusResolved:
		return 3
	}
	return -1
}

// CanTransitionTo reports whether moving to the target status is a forward
// transition. Skipping intermediate states is allowed; regressions are not.
func (s Status) CanTransitionTo(target Status) bool {
	return target.rank() > s.rank()
}

// Filter contains incident listing options
type Filter struct {
	SubjectID string
	Status    string
}
