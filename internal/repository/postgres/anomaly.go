package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/pkg/errors"
)

// AnomalyRepository implements anomaly.Repository using database/sql
type AnomalyRepository struct {
	db *sql.DB
}

// NewAnomalyRepository creates a new anomaly repository
func NewAnomalyRepository(db *sql.DB) *AnomalyRepository {
	return &AnomalyRepository{db: db}
}

const anomalyColumns = `id, subject_kind, subject_id, type, severity, metric,
	value, threshold, message, diagnosis_model, diagnosis_kind, diagnosis_delta,
	detected_at, resolved_at, alerted_at, created_at`

// Create inserts a new anomaly and returns its assigned ID
func (r *AnomalyRepository) Create(ctx context.Context, a *anomaly.Anomaly) (int64, error) {
	query := `
		INSERT INTO anomalies (
			subject_kind, subject_id, type, severity, metric,
			value, threshold, message, diagnosis_model, diagnosis_kind,
			diagnosis_delta, detected_at, resolved_at, alerted_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		string(a.SubjectKind), a.SubjectID, string(a.Type), string(a.Severity), string(a.Metric),
		a.Value, a.Threshold, a.Message, a.DiagnosisModel, a.DiagnosisKind,
		a.DiagnosisDelta, formatTime(a.DetectedAt), formatNullableTime(a.ResolvedAt),
		formatNullableTime(a.AlertedAt), formatTime(a.CreatedAt),
	)
	if err != nil {
		return 0, errors.DatabaseError("failed to create anomaly", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, errors.DatabaseError("failed to get anomaly ID", err)
	}

	a.ID = id
	return id, nil
}

// GetByID retrieves an anomaly by ID
func (r *AnomalyRepository) GetByID(ctx context.Context, id int64) (*anomaly.Anomaly, error) {
	query := fmt.Sprintf("SELECT %s FROM anomalies WHERE id = ?", anomalyColumns)

	a, err := scanAnomaly(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("anomaly")
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to get anomaly", err)
	}
	return a, nil
}

// ListOpen retrieves all anomalies with a null resolved_at
func (r *AnomalyRepository) ListOpen(ctx context.Context) ([]*anomaly.Anomaly, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM anomalies WHERE resolved_at IS NULL ORDER BY detected_at DESC",
		anomalyColumns,
	)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.DatabaseError("failed to list open anomalies", err)
	}
	defer rows.Close()

	return collectAnomalies(rows)
}

// Resolve sets resolved_at to now if the anomaly is still open
func (r *AnomalyRepository) Resolve(ctx context.Context, id int64) error {
	query := `
		UPDATE anomalies
		SET resolved_at = ?
		WHERE id = ? AND resolved_at IS NULL
	`

	_, err := r.db.ExecContext(ctx, query, formatTime(nowUTC()), id)
	if err != nil {
		return errors.DatabaseError("failed to resolve anomaly", err)
	}
	return nil
}

// MarkAlerted sets alerted_at to now if not already set
func (r *AnomalyRepository) MarkAlerted(ctx context.Context, id int64) error {
	query := `
		UPDATE anomalies
		SET alerted_at = ?
		WHERE id = ? AND alerted_at IS NULL
	`

	_, err := r.db.ExecContext(ctx, query, formatTime(nowUTC()), id)
	if err != nil {
		return errors.DatabaseError("failed to mark anomaly alerted", err)
	}
	return nil
}

// ListWithPagination retrieves anomalies with filters and pagination
func (r *AnomalyRepository) ListWithPagination(ctx context.Context, filter anomaly.Filter, limit, offset int) ([]*anomaly.Anomaly, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.SubjectID != "" {
		conditions = append(conditions, "subject_id = ?")
		args = append(args, filter.SubjectID)
	}
	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Metric != "" {
		conditions = append(conditions, "metric = ?")
		args = append(args, filter.Metric)
	}
	if filter.Severity != "" {
		conditions = append(conditions, "severity = ?")
		args = append(args, filter.Severity)
	}
	if filter.Open != nil {
		if *filter.Open {
			conditions = append(conditions, "resolved_at IS NULL")
		} else {
			conditions = append(conditions, "resolved_at IS NOT NULL")
		}
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM anomalies" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("failed to count anomalies", err)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM anomalies%s ORDER BY detected_at DESC LIMIT ? OFFSET ?",
		anomalyColumns, where,
	)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.DatabaseError("failed to list anomalies", err)
	}
	defer rows.Close()

	anomalies, err := collectAnomalies(rows)
	if err != nil {
		return nil, 0, err
	}
	return anomalies, total, nil
}

// CountOpenBySeverity counts open anomalies grouped by severity
func (r *AnomalyRepository) CountOpenBySeverity(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT severity, COUNT(*)
		FROM anomalies
		WHERE resolved_at IS NULL
		GROUP BY severity
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.DatabaseError("failed to count open anomalies", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, errors.DatabaseError("failed to scan severity count", err)
		}
		counts[severity] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("failed reading severity counts", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnomaly(row rowScanner) (*anomaly.Anomaly, error) {
	var a anomaly.Anomaly
	var subjectKind, anomalyType, severity, metric string
	var diagnosisModel, diagnosisKind sql.NullString
	var diagnosisDelta sql.NullFloat64
	var detectedAt, createdAt string
	var resolvedAt, alertedAt sql.NullString

	err := row.Scan(
		&a.ID, &subjectKind, &a.SubjectID, &anomalyType, &severity, &metric,
		&a.Value, &a.Threshold, &a.Message, &diagnosisModel, &diagnosisKind,
		&diagnosisDelta, &detectedAt, &resolvedAt, &alertedAt, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	a.SubjectKind = anomaly.SubjectKind(subjectKind)
	a.Type = anomaly.Type(anomalyType)
	a.Severity = anomaly.Severity(severity)
	a.Metric = anomaly.Metric(metric)
	a.DiagnosisModel = diagnosisModel.String
	a.DiagnosisKind = diagnosisKind.String
	a.DiagnosisDelta = diagnosisDelta.Float64
	a.DetectedAt = parseTime(detectedAt)
	a.ResolvedAt = parseNullableTime(resolvedAt)
	a.AlertedAt = parseNullableTime(alertedAt)
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

func collectAnomalies(rows *sql.Rows) ([]*anomaly.Anomaly, error) {
	var anomalies []*anomaly.Anomaly
	for rows.Next() {
		a, err := scanAnomaly(rows)
		if err != nil {
			return nil, errors.DatabaseError("failed to scan anomaly", err)
		}
		anomalies = append(anomalies, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("failed reading anomalies", err)
	}
	return anomalies, nil
}
