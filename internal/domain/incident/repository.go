package incident

import "context"

// Repository defines the interface for incident data access
type Repository interface {
	// Create inserts a new incident and returns its assigned ID
	Create(ctx context.Context, inc *Incident) (int64, error)

	// GetByID retrieves an incident by ID
	GetByID(ctx context.Context, id int64) (*Incident, error)

	// GetByAnomalyID retrieves the incident owning the given anomaly
	GetByAnomalyID(ctx context.Context, anomalyID int64) (*Incident, error)

	// Update persists status, timestamps and duration metrics
	Update(ctx context.Context, inc *Incident) error

	// ListWithPagination retrieves incidents with filters and pagination
	ListWithPagination(ctx context.Context, filter Filter, limit, offset int) ([]*Incident, int64, error)

	// CountByStatus counts incidents grouped by status
	CountByStatus(ctx context.Context) (map[string]int, error)
}
