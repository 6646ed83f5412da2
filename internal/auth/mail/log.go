package mail

import (
	"context"
	"log/slog"
)

// LogMailer writes messages to the log instead of delivering them. Used in
// dev when no SMTP host is configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.Logger.Info("mail (not delivered, log mailer active)",
		"to", to,
		"subject", subject,
		"body_bytes", len(htmlBody),
	)
	return nil
}
