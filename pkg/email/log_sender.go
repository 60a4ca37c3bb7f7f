package email

import (
	"context"
	"log/slog"
)

// LogSender implements EmailSender for local development: it logs the email
// instead of sending it through a provider.
type LogSender struct {
	log *slog.Logger
}

// NewLogSender creates a development email sender backed by slog.
func NewLogSender(log *slog.Logger) EmailSender {
	if log == nil {
		log = slog.Default()
	}
	return &LogSender{log: log}
}

func (d *LogSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	d.log.InfoContext(ctx, "email (dev sender, not delivered)",
		"send_to", params.SendTo,
		"subject", params.Subject,
		"tag", params.Tag,
		"body_bytes", len(params.BodyHTML),
	)
	return nil
}
