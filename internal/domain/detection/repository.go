package detection

import "context"

// Repository defines detection config persistence
type Repository interface {
	// Get returns the stored config
	Get(ctx context.Context) (*Config, error)

	// Update replaces the stored config
	Update(ctx context.Context, cfg *Config) error
}
