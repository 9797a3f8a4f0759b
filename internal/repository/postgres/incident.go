package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/domain/incident"
	"github.com/usagesentry/usagesentry/internal/pkg/errors"
)

// IncidentRepository implements incident.Repository using database/sql
type IncidentRepository struct {
	db *sql.DB
}

// NewIncidentRepository creates a new incident repository
func NewIncidentRepository(db *sql.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

const incidentColumns = `id, anomaly_id, subject_kind, subject_id, status,
	detected_at, alerted_at, acknowledged_at, resolved_at,
	mttd_minutes, mtti_minutes, mttr_minutes, created_at, updated_at`

// Create inserts a new incident and returns its assigned ID
func (r *IncidentRepository) Create(ctx context.Context, inc *incident.Incident) (int64, error) {
	query := `
		INSERT INTO incidents (
			anomaly_id, subject_kind, subject_id, status,
			detected_at, alerted_at, acknowledged_at, resolved_at,
			mttd_minutes, mtti_minutes, mttr_minutes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		inc.AnomalyID, string(inc.SubjectKind), inc.SubjectID, string(inc.Status),
		formatTime(inc.DetectedAt), formatNullableTime(inc.AlertedAt),
		formatNullableTime(inc.AcknowledgedAt), formatNullableTime(inc.ResolvedAt),
		nullableFloat(inc.MTTDMinutes), nullableFloat(inc.MTTIMinutes), nullableFloat(inc.MTTRMinutes),
		formatTime(inc.CreatedAt), formatTime(inc.UpdatedAt),
	)
	if err != nil {
		return 0, errors.DatabaseError("failed to create incident", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, errors.DatabaseError("failed to get incident ID", err)
	}

	inc.ID = id
	return id, nil
}

// GetByID retrieves an incident by ID
func (r *IncidentRepository) GetByID(ctx context.Context, id int64) (*incident.Incident, error) {
	query := fmt.Sprintf("SELECT %s FROM incidents WHERE id = ?", incidentColumns)

	inc, err := scanIncident(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("incident")
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to get incident", err)
	}
	return inc, nil
}

// GetByAnomalyID retrieves the incident owning the given anomaly
func (r *IncidentRepository) GetByAnomalyID(ctx context.Context, anomalyID int64) (*incident.Incident, error) {
	query := fmt.Sprintf("SELECT %s FROM incidents WHERE anomaly_id = ?", incidentColumns)

	inc, err := scanIncident(r.db.QueryRowContext(ctx, query, anomalyID))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("incident")
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to get incident by anomaly", err)
	}
	return inc, nil
}

// Update persists status, timestamps and duration metrics
func (r *IncidentRepository) Update(ctx context.Context, inc *incident.Incident) error {
	query := `
		UPDATE incidents
		SET status = ?, alerted_at = ?, acknowledged_at = ?, resolved_at = ?,
			mttd_minutes = ?, mtti_minutes = ?, mttr_minutes = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(inc.Status), formatNullableTime(inc.AlertedAt),
		formatNullableTime(inc.AcknowledgedAt), formatNullableTime(inc.ResolvedAt),
		nullableFloat(inc.MTTDMinutes), nullableFloat(inc.MTTIMinutes), nullableFloat(inc.MTTRMinutes),
		formatTime(inc.UpdatedAt), inc.ID,
	)
	if err != nil {
		return errors.DatabaseError("failed to update incident", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("failed to check incident update", err)
	}
	if affected == 0 {
		return errors.NotFound("incident")
	}
	return nil
}

// ListWithPagination retrieves incidents with filters and pagination
func (r *IncidentRepository) ListWithPagination(ctx context.Context, filter incident.Filter, limit, offset int) ([]*incident.Incident, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.SubjectID != "" {
		conditions = append(conditions, "subject_id = ?")
		args = append(args, filter.SubjectID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM incidents" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("failed to count incidents", err)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM incidents%s ORDER BY detected_at DESC LIMIT ? OFFSET ?",
		incidentColumns, where,
	)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.DatabaseError("failed to list incidents", err)
	}
	defer rows.Close()

	var incidents []*incident.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, 0, errors.DatabaseError("failed to scan incident", err)
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.DatabaseError("failed reading incidents", err)
	}
	return incidents, total, nil
}

// CountByStatus counts incidents grouped by status
func (r *IncidentRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM incidents GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.DatabaseError("failed to count incidents", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errors.DatabaseError("failed to scan status count", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("failed reading status counts", err)
	}
	return counts, nil
}

func scanIncident(row rowScanner) (*incident.Incident, error) {
	var inc incident.Incident
	var subjectKind, status string
	var detectedAt, createdAt string
	var alertedAt, acknowledgedAt, resolvedAt, updatedAt sql.NullString
	var mttd, mtti, mttr sql.NullFloat64

	err := row.Scan(
		&inc.ID, &inc.AnomalyID, &subjectKind, &inc.SubjectID, &status,
		&detectedAt, &alertedAt, &acknowledgedAt, &resolvedAt,
		&mttd, &mtti, &mttr, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	inc.SubjectKind = anomaly.SubjectKind(subjectKind)
	inc.Status = incident.Status(status)
	inc.DetectedAt = parseTime(detectedAt)
	inc.AlertedAt = parseNullableTime(alertedAt)
	inc.AcknowledgedAt = parseNullableTime(acknowledgedAt)
	inc.ResolvedAt = parseNullableTime(resolvedAt)
	inc.MTTDMinutes = floatPtr(mttd)
	inc.MTTIMinutes = floatPtr(mtti)
	inc.MTTRMinutes = floatPtr(mttr)
	inc.CreatedAt = parseTime(createdAt)
	if updatedAt.Valid {
		inc.UpdatedAt = parseTime(updatedAt.String)
	}
	return &inc, nil
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}
