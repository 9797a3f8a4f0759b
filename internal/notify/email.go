package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/usagesentry/usagesentry/internal/pkg/logger"
)

// EmailChannel delivers alerts over SMTP
type EmailChannel struct {
	host       string
	port       int
	username   string
	password   string
	from       string
	recipients []string
	logger     *logger.Logger
}

// NewEmailChannel creates an SMTP email channel
func NewEmailChannel(host string, port int, username, password, from string, recipients []string, log *logger.Logger) *EmailChannel {
	return &EmailChannel{
		host:       host,
		port:       port,
		username:   username,
		password:   password,
		from:       from,
		recipients: recipients,
		logger:     log,
	}
}

// Name identifies the channel
func (c *EmailChannel) Name() string {
	return "email"
}

// Send delivers the alert to all configured recipients
func (c *EmailChannel) Send(ctx context.Context, alert Alert) error {
	if c.host == "" || len(c.recipients) == 0 {
		return fmt.Errorf("email channel not configured")
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", c.from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(c.recipients, ", "))
	fmt.Fprintf(&msg, "Subject: [%s] %s\r\n", strings.ToUpper(string(alert.Severity)), alert.Title)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(alert.Body)
	msg.WriteString("\r\n")

	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	var auth smtp.Auth
	if c.username != "" {
		auth = smtp.PlainAuth("", c.username, c.password, c.host)
	}

	if err := smtp.SendMail(addr, auth, c.from, c.recipients, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"delivery_id": alert.DeliveryID,
		"recipients":  len(c.recipients),
	}).Info("Email notification sent")

	return nil
}
