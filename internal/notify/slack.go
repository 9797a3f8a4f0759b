package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/pkg/logger"
)

// SlackChannel posts alerts to a Slack incoming webhook
type SlackChannel struct {
	webhookURL string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewSlackChannel creates a Slack webhook channel
func NewSlackChannel(webhookURL string, log *logger.Logger) *SlackChannel {
	return &SlackChannel{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log,
	}
}

// Name identifies the channel
func (c *SlackChannel) Name() string {
	return "slack"
}

// Send posts the alert to the configured webhook
func (c *SlackChannel) Send(ctx context.Context, alert Alert) error {
	if c.webhookURL == "" {
		return fmt.Errorf("no Slack webhook URL configured")
	}

	payload, err := json.Marshal(c.buildMessage(alert))
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Slack API error: %s", string(body))
	}

	c.logger.WithFields(map[string]interface{}{
		"delivery_id": alert.DeliveryID,
		"subject":     alert.Subject,
	}).Info("Slack notification sent")

	return nil
}

func (c *SlackChannel) buildMessage(alert Alert) map[string]interface{} {
	color := "#ffcc00" // yellow
	emoji := ":warning:"
	if alert.Severity == anomaly.SeverityCritical {
		color = "#ff0000" // red
		emoji = ":rotating_light:"
	}
	if alert.Metric == anomaly.MetricSpend {
		emoji = ":money_with_wings:"
	}

	return map[string]interface{}{
		"attachments": []map[string]interface{}{
			{
				"color":  color,
				"title":  fmt.Sprintf("%s %s", emoji, alert.Title),
				"text":   alert.Body,
				"footer": "UsageSentry",
				"ts":     time.Now().Unix(),
			},
		},
	}
}
