package postgres

import (
	"context"
	"database/sql"

	"github.com/usagesentry/usagesentry/internal/domain/detection"
	"github.com/usagesentry/usagesentry/internal/pkg/errors"
)

// DetectionConfigRepository implements detection.Repository. The config is
// a single row with id 1, seeded by the initial migration.
type DetectionConfigRepository struct {
	db *sql.DB
}

// NewDetectionConfigRepository creates a new detection config repository
func NewDetectionConfigRepository(db *sql.DB) *DetectionConfigRepository {
	return &DetectionConfigRepository{db: db}
}

// Get returns the stored config
func (r *DetectionConfigRepository) Get(ctx context.Context) (*detection.Config, error) {
	query := `
		SELECT max_spend_cents_per_cycle, max_requests_per_day, max_tokens_per_day,
			zscore_multiplier, zscore_lookback_days, spike_multiplier,
			spike_lookback_days, drift_days_above_p75
		FROM detection_config
		WHERE id = 1
	`

	var cfg detection.Config
	err := r.db.QueryRowContext(ctx, query).Scan(
		&cfg.MaxSpendCentsPerCycle, &cfg.MaxRequestsPerDay, &cfg.MaxTokensPerDay,
		&cfg.ZScoreMultiplier, &cfg.ZScoreLookbackDays, &cfg.SpikeMultiplier,
		&cfg.SpikeLookbackDays, &cfg.DriftDaysAboveP75,
	)
	if err == sql.ErrNoRows {
		def := detection.DefaultConfig()
		return &def, nil
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to get detection config", err)
	}
	return &cfg, nil
}

// Update replaces the stored config
func (r *DetectionConfigRepository) Update(ctx context.Context, cfg *detection.Config) error {
	query := `
		UPDATE detection_config
		SET max_spend_cents_per_cycle = ?, max_requests_per_day = ?, max_tokens_per_day = ?,
			zscore_multiplier = ?, zscore_lookback_days = ?, spike_multiplier = ?,
			spike_lookback_days = ?, drift_days_above_p75 = ?, updated_at = ?
		WHERE id = 1
	`

	result, err := r.db.ExecContext(ctx, query,
		cfg.MaxSpendCentsPerCycle, cfg.MaxRequestsPerDay, cfg.MaxTokensPerDay,
		cfg.ZScoreMultiplier, cfg.ZScoreLookbackDays, cfg.SpikeMultiplier,
		cfg.SpikeLookbackDays, cfg.DriftDaysAboveP75, formatTime(nowUTC()),
	)
	if err != nil {
		return errors.DatabaseError("failed to update detection config", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("failed to check config update", err)
	}
	if affected == 0 {
		insert := `
			INSERT INTO detection_config (
				id, max_spend_cents_per_cycle, max_requests_per_day, max_tokens_per_day,
				zscore_multiplier, zscore_lookback_days, spike_multiplier,
				spike_lookback_days, drift_days_above_p75, updated_at
			) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := r.db.ExecContext(ctx, insert,
			cfg.MaxSpendCentsPerCycle, cfg.MaxRequestsPerDay, cfg.MaxTokensPerDay,
			cfg.ZScoreMultiplier, cfg.ZScoreLookbackDays, cfg.SpikeMultiplier,
			cfg.SpikeLookbackDays, cfg.DriftDaysAboveP75, formatTime(nowUTC()),
		)
		if err != nil {
			return errors.DatabaseError("failed to insert detection config", err)
		}
	}
	return nil
}
