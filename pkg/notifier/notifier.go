package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/quillpost/quillpost/pkg/email"
	"github.com/quillpost/quillpost/pkg/subscription"
)

// Directory resolves a user ID to the profile fields notification delivery
// needs. The identity store behind it is opaque to this package.
type Directory interface {
	Email(ctx context.Context, userID uuid.UUID) (string, error)
}

// ErrUnknownKind is returned for notification kinds without a template.
var ErrUnknownKind = errors.New("no template for notification kind")

// template is the subject and HTML body for one lifecycle notification.
type template struct {
	subject string
	body    string
}

var templates = map[subscription.NotificationKind]template{
	subscription.NotificationPaymentFailed: {
		subject: "Your payment didn't go through",
		body: `<p>We couldn't charge your payment method for your subscription.
We'll retry automatically; please check that your card details are up to date.</p>`,
	},
	subscription.NotificationRetryReminder: {
		subject: "Reminder: we still can't process your payment",
		body: `<p>A second attempt to charge your payment method failed.
Please update your payment details to keep your subscription active.</p>`,
	},
	subscription.NotificationGraceStarted: {
		subject: "Final notice: your subscription is at risk",
		body: `<p>After repeated failed payment attempts your subscription has
entered a 7-day grace period. Update your payment method before it ends to
avoid losing access.</p>`,
	},
	subscription.NotificationReactivated: {
		subject: "Welcome back! Your subscription is active again",
		body: `<p>Your subscription has been reactivated and will renew
automatically at the end of the current period.</p>`,
	},
}

type emailNotifier struct {
	directory Directory
	sender    email.EmailSender
	log       *slog.Logger
}

// NewEmailNotifier returns a subscription.Notifier that delivers lifecycle
// notifications as transactional emails, resolving recipients through the
// user directory.
func NewEmailNotifier(directory Directory, sender email.EmailSender, log *slog.Logger) subscription.Notifier {
	if directory == nil {
		panic("notifier: Directory is required")
	}
	if sender == nil {
		panic("notifier: email.EmailSender is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &emailNotifier{directory: directory, sender: sender, log: log}
}

func (n *emailNotifier) Notify(ctx context.Context, userID uuid.UUID, kind subscription.NotificationKind, meta map[string]string) error {
	tmpl, ok := templates[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	addr, err := n.directory.Email(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve recipient for %s: %w", userID, err)
	}

	// Tag carries the retry count when present so the delivery layer can
	// dedup replays of the same escalation step.
	tag := string(kind)
	if rc, ok := meta["retry_count"]; ok {
		tag = fmt.Sprintf("%s-%s", kind, rc)
	}

	if err := n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   addr,
		Subject:  tmpl.subject,
		BodyHTML: tmpl.body,
		Tag:      tag,
	}); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "lifecycle notification sent", "user_id", userID, "kind", kind)
	return nil
}

type logNotifier struct {
	log *slog.Logger
}

// NewLogNotifier returns a subscription.Notifier that only logs, for local
// development and tests.
func NewLogNotifier(log *slog.Logger) subscription.Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &logNotifier{log: log}
}

func (n *logNotifier) Notify(ctx context.Context, userID uuid.UUID, kind subscription.NotificationKind, meta map[string]string) error {
	attrs := []any{"user_id", userID, "kind", kind}
	for k, v := range meta {
		attrs = append(attrs, k, v)
	}
	n.log.InfoContext(ctx, "lifecycle notification", attrs...)
	return nil
}
