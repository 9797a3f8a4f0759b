package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/domain/incident"
	"github.com/usagesentry/usagesentry/internal/notify"
	"github.com/usagesentry/usagesentry/internal/pkg/logger"
	"github.com/usagesentry/usagesentry/internal/pkg/metrics"
)

// AlertService fans anomaly alerts out to the configured notification
// channels and advances the incident to alerted when at least one
// channel delivery succeeds.
type AlertService struct {
	channels  []notify.Channel
	incidents incident.Service
	logger    *logger.Logger
}

// NewAlertService creates a new alert dispatcher
func NewAlertService(channels []notify.Channel, incidents incident.Service, log *logger.Logger) *AlertService {
	return &AlertService{
		channels:  channels,
		incidents: incidents,
		logger:    log,
	}
}

// Dispatch sends the alert on every channel. Channel failures are logged
// and counted but never propagated; the anomaly and incident stay
// correctly recorded regardless of notification outcome. Returns whether
// any channel succeeded.
func (s *AlertService) Dispatch(ctx context.Context, a *anomaly.Anomaly, inc *incident.Incident) (bool, error) {
	deliveryID := uuid.New().String()
	alert := notify.Alert{
		DeliveryID: deliveryID,
		Title:      alertTitle(a),
		Body:       a.Message,
		Severity:   a.Severity,
		Subject:    a.SubjectID,
		Metric:     a.Metric,
	}

	anySucceeded := false
	for _, ch := range s.channels {
		err := ch.Send(ctx, alert)
		if err != nil {
			metrics.RecordAlertDispatch(ch.Name(), "failure")
			s.logger.WithFields(map[string]interface{}{
				"delivery_id": deliveryID,
				"channel":     ch.Name(),
				"anomaly_id":  a.ID,
			}).ErrorWithErr(err, "Failed to send alert on channel")
			continue
		}
		metrics.RecordAlertDispatch(ch.Name(), "success")
		anySucceeded = true
	}

	if !anySucceeded {
		s.logger.WithFields(map[string]interface{}{
			"delivery_id": deliveryID,
			"anomaly_id":  a.ID,
			"channels":    len(s.channels),
		}).Warn("All alert channels failed, incident stays unalerted")
		return false, nil
	}

	if err := s.incidents.MarkAlerted(ctx, inc.ID); err != nil {
		return true, err
	}
	return true, nil
}

func alertTitle(a *anomaly.Anomaly) string {
	subject := a.SubjectID
	if a.SubjectKind == anomaly.SubjectTeam {
		subject = "team"
	}
	return fmt.Sprintf("%s anomaly: %s %s", subject, a.Type, a.Metric)
}
