package anomaly

import "context"

// Repository defines the interface for anomaly data access
type Repository interface {
	// Create inserts a new anomaly and returns its assigned ID
	Create(ctx context.Context, a *Anomaly) (int64, error)

	// GetByID retrieves an anomaly by ID
	GetByID(ctx context.Context, id int64) (*Anomaly, error)

	// ListOpen retrieves all anomalies with a null resolved_at
	ListOpen(ctx context.Context) ([]*Anomaly, error)

	// Resolve sets resolved_at to now if the anomaly is still open.
	// Calling it on an already-resolved anomaly is a no-op.
	Resolve(ctx context.Context, id int64) error

	// MarkAlerted sets alerted_at to now if not already set
	MarkAlerted(ctx context.Context, id int64) error

	// ListWithPagination retrieves anomalies with filters and pagination
	ListWithPagination(ctx context.Context, filter Filter, limit, offset int) ([]*Anomaly, int64, error)

	// CountOpenBySeverity counts open anomalies grouped by severity
	CountOpenBySeverity(ctx context.Context) (map[string]int, error)
}
