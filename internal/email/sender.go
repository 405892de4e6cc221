// Package email sends newsletter issues to subscribers through an HTTP email API.
package email

import (
	"context"
	"log/slog"
)

// Sender delivers one email. Failures are returned as *errors.TransportError.
type Sender interface {
	Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error
}

// LogSender logs emails instead of sending them. It is used when no API token is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the recipient and subject and always succeeds.
func (s *LogSender) Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error {
	s.logger.InfoContext(ctx, "email not sent, no transport configured",
		slog.String("recipient", recipient),
		slog.String("subject", subject),
		slog.Int("html_bytes", len(htmlBody)),
		slog.Int("text_bytes", len(textBody)),
	)
	return nil
}
