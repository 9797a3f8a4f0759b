package notify

import (
	"context"

	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
)

// Alert is the payload handed to every notification channel
type Alert struct {
	DeliveryID string
	Title      string
	Body       string
	Severity   anomaly.Severity
	Subject    string
	Metric     anomaly.Metric
}

// Channel delivers an alert over one outbound medium. Send failures are
// captured per channel by the dispatcher and never abort a run.
type Channel interface {
	Name() string
	Send(ctx context.Context, alert Alert) error
}
