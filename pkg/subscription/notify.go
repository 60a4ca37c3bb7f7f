package subscription

import (
	"context"

	"github.com/google/uuid"
)

// NotificationKind identifies which lifecycle transition triggered a
// notification. Kinds are stable strings so downstream delivery can dedup on
// (user, kind, retry count).
type NotificationKind string

const (
	NotificationPaymentFailed NotificationKind = "payment_failed"
	NotificationRetryReminder NotificationKind = "payment_retry_reminder"
	NotificationGraceStarted  NotificationKind = "grace_period_started"
	NotificationReactivated   NotificationKind = "subscription_reactivated"
)

// Notifier delivers lifecycle notifications. Implementations own the
// transport; this package only decides which transitions notify. Dispatch
// failures are logged and swallowed by callers and never roll back the state
// transition that triggered them.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind NotificationKind, meta map[string]string) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, userID uuid.UUID, kind NotificationKind, meta map[string]string) error

func (f NotifierFunc) Notify(ctx context.Context, userID uuid.UUID, kind NotificationKind, meta map[string]string) error {
	return f(ctx, userID, kind, meta)
}

// noopNotifier is the default dispatcher when none is configured.
type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, uuid.UUID, NotificationKind, map[string]string) error {
	return nil
}
