package services

import (
	"context"
	"time"

	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/domain/incident"
	"github.com/usagesentry/usagesentry/internal/pkg/errors"
	"github.com/usagesentry/usagesentry/internal/pkg/logger"
)

// IncidentService implements incident.Service
type IncidentService struct {
	repo      incident.Repository
	anomalies anomaly.Repository
	logger    *logger.Logger

	now func() time.Time
}

// NewIncidentService creates a new incident lifecycle manager
func NewIncidentService(repo incident.Repository, anomalies anomaly.Repository, log *logger.Logger) *IncidentService {
	return &IncidentService{
		repo:      repo,
		anomalies: anomalies,
		logger:    log,
		now:       time.Now,
	}
}

// CreateForAnomaly opens an incident for a newly inserted anomaly.
// MTTD is computed here, once: the elapsed time between the anomaly's
// detection timestamp and incident creation, which in a batch pipeline
// is close to zero.
func (s *IncidentService) CreateForAnomaly(ctx context.Context, a *anomaly.Anomaly) (*incident.Incident, error) {
	now := s.now()
	mttd := now.Sub(a.DetectedAt).Minutes()
	if mttd < 0 {
		mttd = 0
	}

	inc := &incident.Incident{
		AnomalyID:   a.ID,
		SubjectKind: a.SubjectKind,
		SubjectID:   a.SubjectID,
		Status:      incident.StatusOpen,
		DetectedAt:  a.DetectedAt,
		MTTDMinutes: &mttd,
	}

	id, err := s.repo.Create(ctx, inc)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to create incident")
		return nil, err
	}
	inc.ID = id

	s.logger.WithFields(map[string]interface{}{
		"incident_id": id,
		"anomaly_id":  a.ID,
		"subject":     a.SubjectID,
		"severity":    a.Severity,
	}).Info("Incident created")

	return inc, nil
}

// MarkAlerted transitions the incident to alerted after a successful
// dispatch. Redundant calls on an already-advanced incident are no-ops.
func (s *IncidentService) MarkAlerted(ctx context.Context, id int64) error {
	inc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if !inc.Status.CanTransitionTo(incident.StatusAlerted) {
		return nil
	}

	now := s.now()
	inc.Status = incident.StatusAlerted
	inc.AlertedAt = &now

	if err := s.repo.Update(ctx, inc); err != nil {
		s.logger.ErrorWithErr(err, "Failed to mark incident alerted")
		return err
	}
	if err := s.anomalies.MarkAlerted(ctx, inc.AnomalyID); err != nil {
		s.logger.ErrorWithErr(err, "Failed to mark anomaly alerted")
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"incident_id": id,
	}).Info("Incident alerted")

	return nil
}

// Acknowledge records operator acknowledgement and computes MTTI from the
// alert timestamp. MTTI stays nil for incidents that were never alerted.
// Unknown IDs and already-acknowledged incidents are silent no-ops so
// racing operators don't surface errors.
func (s *IncidentService) Acknowledge(ctx context.Context, id int64) error {
	inc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if !inc.Status.CanTransitionTo(incident.StatusAcknowledged) {
		return nil
	}

	now := s.now()
	inc.Status = incident.StatusAcknowledged
	inc.AcknowledgedAt = &now
	if inc.AlertedAt != nil {
		mtti := now.Sub(*inc.AlertedAt).Minutes()
		inc.MTTIMinutes = &mtti
	}

	if err := s.repo.Update(ctx, inc); err != nil {
		s.logger.ErrorWithErr(err, "Failed to acknowledge incident")
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"incident_id": id,
	}).Info("Incident acknowledged")

	return nil
}

// Resolve closes the incident and computes MTTR from detection time.
// Resolving an incident that was never alerted or acknowledged is
// allowed; operators may close out manually.
func (s *IncidentService) Resolve(ctx context.Context, id int64) error {
	inc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if !inc.Status.CanTransitionTo(incident.StatusResolved) {
		return nil
	}

	now := s.now()
	inc.Status = incident.StatusResolved
	inc.ResolvedAt = &now
	mttr := now.Sub(inc.DetectedAt).Minutes()
	inc.MTTRMinutes = &mttr

	if err := s.repo.Update(ctx, inc); err != nil {
		s.logger.ErrorWithErr(err, "Failed to resolve incident")
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"incident_id":  id,
		"mttr_minutes": mttr,
	}).Info("Incident resolved")

	return nil
}

// GetByID retrieves an incident by ID
func (s *IncidentService) GetByID(ctx context.Context, id int64) (*incident.Incident, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves incidents with filters and pagination
func (s *IncidentService) List(ctx context.Context, filter incident.Filter, limit, offset int) ([]*incident.Incident, int64, error) {
	return s.repo.ListWithPagination(ctx, filter, limit, offset)
}

// GetSummary counts incidents by status
func (s *IncidentService) GetSummary(ctx context.Context) (map[string]int, error) {
	return s.repo.CountByStatus(ctx)
}
