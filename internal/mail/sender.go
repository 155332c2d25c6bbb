// Package mail abstracts outbound delivery of user-facing notifications.
package mail

import (
	"context"
	"log/slog"

	id "internhub/pkg/domain"
)

// Sender delivers a rendered notification to a user.
type Sender interface {
	Send(ctx context.Context, recipient id.UserID, subject, body string) error
}

// LogSender writes deliveries to the structured log instead of an
// external provider. It is the default sender in development.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, recipient id.UserID, subject, body string) error {
	s.logger.InfoContext(ctx, "notification delivered",
		"recipient", recipient.String(),
		"subject", subject,
		"body", body,
	)
	return nil
}
