package incident

import (
	"context"

	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
)

// Service defines the incident lifecycle contract. Transitions are
// forward-only; acknowledge/resolve on an unknown ID are silent no-ops.
type Service interface {
	// CreateForAnomaly opens a new incident for a freshly inserted anomaly
	CreateForAnomaly(ctx context.Context, a *anomaly.Anomaly) (*Incident, error)

	// MarkAlerted records a successful alert dispatch
	MarkAlerted(ctx context.Context, id int64) error

	// Acknowledge records operator acknowledgement
	Acknowledge(ctx context.Context, id int64) error

	// Resolve closes the incident
	Resolve(ctx context.Context, id int64) error

	// GetByID retrieves an incident by ID
	GetByID(ctx context.Context, id int64) (*Incident, error)

	// List retrieves incidents with filters and pagination
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Incident, int64, error)

	// GetSummary counts incidents by status
	GetSummary(ctx context.Context) (map[string]int, error)
}
