package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/usagesentry/usagesentry/internal/domain/usage"
	"github.com/usagesentry/usagesentry/internal/pkg/errors"
)

// UsageRepository implements usage.Repository using database/sql.
// Events are stored with RFC3339 UTC timestamps, so lexicographic
// comparison on occurred_at matches chronological order.
type UsageRepository struct {
	db *sql.DB
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *sql.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// UpsertMembers inserts or updates team members
func (r *UsageRepository) UpsertMembers(ctx context.Context, members []usage.Member) error {
	if len(members) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin member upsert", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO members (id, email, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET email = excluded.email, name = excluded.name
	`)
	if err != nil {
		return errors.DatabaseError("failed to prepare member upsert", err)
	}
	defer stmt.Close()

	for _, m := range members {
		if _, err := stmt.ExecContext(ctx, m.ID, m.Email, m.Name, formatTime(m.CreatedAt)); err != nil {
			return errors.DatabaseError("failed to upsert member", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit member upsert", err)
	}
	return nil
}

// RecordEvents inserts usage events in one transaction, skipping events
// whose ID was already recorded
func (r *UsageRepository) RecordEvents(ctx context.Context, events []usage.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin event insert", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO usage_events (
			id, member_id, model, requests, input_tokens, output_tokens,
			spend_cents, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return errors.DatabaseError("failed to prepare event insert", err)
	}
	defer stmt.Close()

	for _, e := range events {
		_, err := stmt.ExecContext(ctx,
			e.ID, e.MemberID, e.Model, e.Requests, e.InputTokens,
			e.OutputTokens, e.SpendCents, formatTime(e.OccurredAt),
		)
		if err != nil {
			return errors.DatabaseError("failed to insert usage event", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit event insert", err)
	}
	return nil
}

// CycleSpend returns per-member spend since the start of the current
// billing cycle
func (r *UsageRepository) CycleSpend(ctx context.Context, cycleStart time.Time) ([]usage.MemberSpend, error) {
	query := `
		SELECT member_id, SUM(spend_cents)
		FROM usage_events
		WHERE occurred_at >= ?
		GROUP BY member_id
	`

	rows, err := r.db.QueryContext(ctx, query, formatTime(cycleStart))
	if err != nil {
		return nil, errors.DatabaseError("failed to query cycle spend", err)
	}
	defer rows.Close()

	var spends []usage.MemberSpend
	for rows.Next() {
		var s usage.MemberSpend
		if err := rows.Scan(&s.MemberID, &s.SpendCents); err != nil {
			return nil, errors.DatabaseError("failed to scan cycle spend", err)
		}
		spends = append(spends, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("failed reading cycle spend", err)
	}
	return spends, nil
}

// Totals returns per-member aggregates over [from, to)
func (r *UsageRepository) Totals(ctx context.Context, from, to time.Time) ([]usage.MemberTotals, error) {
	query := `
		SELECT member_id, SUM(requests), SUM(input_tokens + output_tokens), SUM(spend_cents)
		FROM usage_events
		WHERE occurred_at >= ? AND occurred_at < ?
		GROUP BY member_id
	`

	rows, err := r.db.QueryContext(ctx, query, formatTime(from), formatTime(to))
	if err != nil {
		return nil, errors.DatabaseError("failed to query usage totals", err)
	}
	defer rows.Close()

	var totals []usage.MemberTotals
	for rows.Next() {
		var t usage.MemberTotals
		if err := rows.Scan(&t.MemberID, &t.Requests, &t.Tokens, &t.SpendCents); err != nil {
			return nil, errors.DatabaseError("failed to scan usage totals", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("failed reading usage totals", err)
	}
	return totals, nil
}

// DailyTotals returns per-member, per-day aggregates over [from, to)
func (r *UsageRepository) DailyTotals(ctx context.Context, from, to time.Time) ([]usage.MemberDay, error) {
	query := `
		SELECT member_id, SUBSTR(occurred_at, 1, 10) AS day,
			SUM(requests), SUM(input_tokens + output_tokens)
		FROM usage_events
		WHERE occurred_at >= ? AND occurred_at < ?
		GROUP BY member_id, day
		ORDER BY member_id, day
	`

	rows, err := r.db.QueryContext(ctx, query, formatTime(from), formatTime(to))
	if err != nil {
		return nil, errors.DatabaseError("failed to query daily totals", err)
	}
	defer rows.Close()

	var days []usage.MemberDay
	for rows.Next() {
		var d usage.MemberDay
		if err := rows.Scan(&d.MemberID, &d.Day, &d.Requests, &d.Tokens); err != nil {
			return nil, errors.DatabaseError("failed to scan daily totals", err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("failed reading daily totals", err)
	}
	return days, nil
}

// ModelBreakdown returns per-member, per-model aggregates over [from, to)
func (r *UsageRepository) ModelBreakdown(ctx context.Context, from, to time.Time) ([]usage.ModelUsage, error) {
	query := `
		SELECT member_id, model, SUM(requests), SUM(input_tokens + output_tokens)
		FROM usage_events
		WHERE occurred_at >= ? AND occurred_at < ?
		GROUP BY member_id, model
	`

	rows, err := r.db.QueryContext(ctx, query, formatTime(from), formatTime(to))
	if err != nil {
		return nil, errors.DatabaseError("failed to query model breakdown", err)
	}
	defer rows.Close()

	var models []usage.ModelUsage
	for rows.Next() {
		var m usage.ModelUsage
		if err := rows.Scan(&m.MemberID, &m.Model, &m.Requests, &m.Tokens); err != nil {
			return nil, errors.DatabaseError("failed to scan model breakdown", err)
		}
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("failed reading model breakdown", err)
	}
	return models, nil
}

// TopModelByTokens returns the member's highest token-consuming model
// over [from, to), or empty string if the member had no events
func (r *UsageRepository) TopModelByTokens(ctx context.Context, memberID string, from, to time.Time) (string, error) {
	query := `
		SELECT model
		FROM usage_events
		WHERE member_id = ? AND occurred_at >= ? AND occurred_at < ?
		GROUP BY model
		ORDER BY SUM(input_tokens + output_tokens) DESC
		LIMIT 1
	`

	var model string
	err := r.db.QueryRowContext(ctx, query, memberID, formatTime(from), formatTime(to)).Scan(&model)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.DatabaseError("failed to query top model", err)
	}
	return model, nil
}

// LatestEventTime returns the newest recorded event time, or nil when no
// events are recorded
func (r *UsageRepository) LatestEventTime(ctx context.Context) (*time.Time, error) {
	var latest sql.NullString
	err := r.db.QueryRowContext(ctx, "SELECT MAX(occurred_at) FROM usage_events").Scan(&latest)
	if err != nil {
		return nil, errors.DatabaseError("failed to query latest event time", err)
	}
	return parseNullableTime(latest), nil
}
