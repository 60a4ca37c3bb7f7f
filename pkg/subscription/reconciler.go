package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quillpost/quillpost/pkg/billing"
)

// Reconciler applies the processor's asynchronous billing events to local
// state. Delivery is at least once and unordered, so every branch:
//
//   - locates its target by the correlation key carried in the event, never
//     by trusting any other field,
//   - runs under a lock keyed by that correlation identity so concurrent
//     duplicates cannot double-apply,
//   - is deduplicated by event identity when the processor supplies one.
//
// An unknown correlation key is an integration error: logged and swallowed
// so the processor does not retry a business no-op forever. Store failures
// are returned so the delivery is retried.
type Reconciler struct {
	profiles ProfileStore
	sessions SessionStore
	gateway  billing.Gateway
	notifier Notifier
	dedup    Deduper
	locker   Locker
	log      *slog.Logger
	now      func() time.Time
}

// ReconcilerOption configures optional Reconciler dependencies.
type ReconcilerOption func(*Reconciler)

// WithReconcilerNotifier sets the notification dispatcher for escalation and
// lifecycle transitions.
func WithReconcilerNotifier(n Notifier) ReconcilerOption {
	return func(r *Reconciler) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithReconcilerLogger sets the reconciler logger.
func WithReconcilerLogger(log *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
	}
}

// WithReconcilerClock overrides the time source, used by tests.
func WithReconcilerClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReconciler creates a Reconciler. Panics if a required dependency is nil
// to fail fast during initialization.
func NewReconciler(profiles ProfileStore, sessions SessionStore, gateway billing.Gateway, dedup Deduper, locker Locker, opts ...ReconcilerOption) *Reconciler {
	if profiles == nil {
		panic("subscription: ProfileStore is required")
	}
	if sessions == nil {
		panic("subscription: SessionStore is required")
	}
	if gateway == nil {
		panic("subscription: billing.Gateway is required")
	}
	if dedup == nil {
		panic("subscription: Deduper is required")
	}
	if locker == nil {
		panic("subscription: Locker is required")
	}

	r := &Reconciler{
		profiles: profiles,
		sessions: sessions,
		gateway:  gateway,
		dedup:    dedup,
		locker:   locker,
		notifier: noopNotifier{},
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply processes one parsed billing event. A nil return means the delivery
// is settled (applied, duplicate, or business no-op); an error means the
// processor should redeliver.
func (r *Reconciler) Apply(ctx context.Context, ev billing.Event) error {
	if ev.Type == billing.EventUnhandled {
		r.log.DebugContext(ctx, "ignoring unhandled billing event", "provider_type", ev.ProviderType)
		return nil
	}

	if ev.ID != "" {
		seen, err := r.dedup.Seen(ctx, ev.ID)
		if err != nil {
			// Dedup is an optimization over the per-key lock; fail
			// open and let the locked apply sort out duplicates.
			r.log.ErrorContext(ctx, "event dedup unavailable", "event_id", ev.ID, "error", err)
		} else if seen {
			r.log.InfoContext(ctx, "duplicate billing event skipped", "event_id", ev.ID, "type", ev.Type)
			return nil
		}
	}

	err := r.apply(ctx, ev)
	if err != nil && ev.ID != "" {
		// Unmark so the processor's redelivery is not dropped.
		if ferr := r.dedup.Forget(ctx, ev.ID); ferr != nil {
			r.log.ErrorContext(ctx, "failed to unmark event after apply error", "event_id", ev.ID, "error", ferr)
		}
	}
	return err
}

func (r *Reconciler) apply(ctx context.Context, ev billing.Event) error {
	switch ev.Type {
	case billing.EventSubscriptionActivated:
		return r.locker.WithLock(ctx, ev.CorrelationKey, func(ctx context.Context) error {
			return r.applyActivated(ctx, ev)
		})
	case billing.EventSubscriptionPaymentCompleted:
		return r.locker.WithLock(ctx, ev.SubscriptionID, func(ctx context.Context) error {
			return r.applyPaymentCompleted(ctx, ev)
		})
	case billing.EventSubscriptionPaymentFailed:
		return r.locker.WithLock(ctx, ev.SubscriptionID, func(ctx context.Context) error {
			return r.applyPaymentFailed(ctx, ev)
		})
	case billing.EventSubscriptionCancelled:
		return r.locker.WithLock(ctx, ev.SubscriptionID, func(ctx context.Context) error {
			return r.applyCancelled(ctx, ev)
		})
	case billing.EventSubscriptionSuspended:
		return r.locker.WithLock(ctx, ev.SubscriptionID, func(ctx context.Context) error {
			return r.applySuspended(ctx, ev)
		})
	case billing.EventSaleCompleted:
		return r.locker.WithLock(ctx, ev.CorrelationKey, func(ctx context.Context) error {
			return r.applySaleCompleted(ctx, ev)
		})
	default:
		r.log.WarnContext(ctx, "billing event type without a reconciler branch", "type", ev.Type)
		return nil
	}
}

// applyActivated links the processor's new recurring subscription to the
// checkout session that started it.
func (r *Reconciler) applyActivated(ctx context.Context, ev billing.Event) error {
	session, err := r.sessions.Get(ctx, ev.CorrelationKey)
	if errors.Is(err, ErrSessionNotFound) {
		r.log.WarnContext(ctx, "activation for unknown correlation key", "correlation_key", ev.CorrelationKey)
		return nil
	}
	if err != nil {
		return err
	}

	if session.Status == SessionActiveSubscription && session.ExternalSubscriptionID == ev.SubscriptionID {
		return nil // duplicate delivery
	}
	if err := session.Transition(SessionActiveSubscription); err != nil {
		r.log.WarnContext(ctx, "activation rejected by session state",
			"correlation_key", ev.CorrelationKey, "status", session.Status)
		return nil
	}

	session.ExternalSubscriptionID = ev.SubscriptionID
	session.UpdatedAt = r.now().UTC()
	if err := r.sessions.Save(ctx, session); err != nil {
		return errors.Join(ErrFailedToSaveSession, err)
	}

	r.log.InfoContext(ctx, "subscription activated",
		"correlation_key", ev.CorrelationKey, "external_subscription_id", ev.SubscriptionID)
	return nil
}

// applyPaymentCompleted extends access by one billing period from now. The
// extension base is deliberately the apply instant rather than the previous
// boundary, matching the processor's own rebill anchoring.
func (r *Reconciler) applyPaymentCompleted(ctx context.Context, ev billing.Event) error {
	p, err := r.profiles.GetByExternalSubscriptionID(ctx, ev.SubscriptionID)
	if errors.Is(err, ErrProfileNotFound) {
		r.log.WarnContext(ctx, "payment completed for unknown subscription", "external_subscription_id", ev.SubscriptionID)
		return nil
	}
	if err != nil {
		return err
	}

	now := r.now().UTC()
	expires := now.Add(BillingPeriod)
	p.Status = StatusActive
	p.ExpiresAt = &expires
	p.PaymentRetryCount = 0
	p.LastPaymentAttempt = &now
	p.GracePeriodEnds = nil
	p.UpdatedAt = now
	if err := r.profiles.Save(ctx, p); err != nil {
		return errors.Join(ErrFailedToSaveProfile, err)
	}

	r.log.InfoContext(ctx, "recurring payment applied",
		"user_id", p.UserID, "expires_at", expires)
	return nil
}

// applyPaymentFailed escalates according to the consecutive-failure count
// and dispatches the matching notification after the transition commits.
func (r *Reconciler) applyPaymentFailed(ctx context.Context, ev billing.Event) error {
	p, err := r.profiles.GetByExternalSubscriptionID(ctx, ev.SubscriptionID)
	if errors.Is(err, ErrProfileNotFound) {
		r.log.WarnContext(ctx, "payment failure for unknown subscription", "external_subscription_id", ev.SubscriptionID)
		return nil
	}
	if err != nil {
		return err
	}

	now := r.now().UTC()
	p.PaymentRetryCount++
	p.LastPaymentAttempt = &now

	esc := Escalate(p.PaymentRetryCount, now)
	p.Status = esc.Status
	p.GracePeriodEnds = esc.GracePeriodEnds
	p.UpdatedAt = now
	if err := r.profiles.Save(ctx, p); err != nil {
		return errors.Join(ErrFailedToSaveProfile, err)
	}

	meta := map[string]string{"retry_count": fmt.Sprintf("%d", p.PaymentRetryCount)}
	if esc.GracePeriodEnds != nil {
		meta["grace_period_ends"] = esc.GracePeriodEnds.Format(time.RFC3339)
	}
	if err := r.notifier.Notify(ctx, p.UserID, esc.Notification, meta); err != nil {
		r.log.ErrorContext(ctx, "escalation notification failed",
			"user_id", p.UserID, "kind", esc.Notification, "error", err)
	}

	r.log.InfoContext(ctx, "payment failure escalated",
		"user_id", p.UserID, "retry_count", p.PaymentRetryCount, "status", p.Status)
	return nil
}

// applyCancelled closes out the session record. The profile is left alone:
// the local cancellation flow owns the profile downgrade, and a
// processor-initiated cancel still honors grandfathered access.
func (r *Reconciler) applyCancelled(ctx context.Context, ev billing.Event) error {
	session, err := r.sessions.GetByExternalSubscriptionID(ctx, ev.SubscriptionID)
	if errors.Is(err, ErrSessionNotFound) {
		r.log.WarnContext(ctx, "cancellation for unknown subscription", "external_subscription_id", ev.SubscriptionID)
		return nil
	}
	if err != nil {
		return err
	}

	if err := session.Transition(SessionCancelledSubscription); err != nil {
		r.log.WarnContext(ctx, "cancellation rejected by session state",
			"external_subscription_id", ev.SubscriptionID, "status", session.Status)
		return nil
	}
	session.UpdatedAt = r.now().UTC()
	if err := r.sessions.Save(ctx, session); err != nil {
		return errors.Join(ErrFailedToSaveSession, err)
	}

	r.log.InfoContext(ctx, "processor-side cancellation recorded", "external_subscription_id", ev.SubscriptionID)
	return nil
}

func (r *Reconciler) applySuspended(ctx context.Context, ev billing.Event) error {
	p, err := r.profiles.GetByExternalSubscriptionID(ctx, ev.SubscriptionID)
	if errors.Is(err, ErrProfileNotFound) {
		r.log.WarnContext(ctx, "suspension for unknown subscription", "external_subscription_id", ev.SubscriptionID)
		return nil
	}
	if err != nil {
		return err
	}

	p.Status = StatusSuspended
	p.UpdatedAt = r.now().UTC()
	if err := r.profiles.Save(ctx, p); err != nil {
		return errors.Join(ErrFailedToSaveProfile, err)
	}

	r.log.InfoContext(ctx, "subscription suspended", "user_id", p.UserID)
	return nil
}

// applySaleCompleted marks a one-time checkout paid after confirming the
// sale state with the processor. The extra read-back guards against spoofed
// webhook bodies on the non-recurring path, which carries money without a
// subscription identity to anchor on.
func (r *Reconciler) applySaleCompleted(ctx context.Context, ev billing.Event) error {
	sale, err := r.gateway.GetSale(ctx, ev.SaleID)
	if err != nil {
		return err
	}
	if sale.State != "completed" {
		r.log.WarnContext(ctx, "sale event with unconfirmed payment state",
			"sale_id", ev.SaleID, "state", sale.State)
		return nil
	}

	session, err := r.sessions.Get(ctx, ev.CorrelationKey)
	if errors.Is(err, ErrSessionNotFound) {
		r.log.WarnContext(ctx, "sale for unknown correlation key", "correlation_key", ev.CorrelationKey)
		return nil
	}
	if err != nil {
		return err
	}

	if session.Status == SessionPaid {
		return nil // duplicate delivery
	}
	if err := session.Transition(SessionPaid); err != nil {
		r.log.WarnContext(ctx, "sale rejected by session state",
			"correlation_key", ev.CorrelationKey, "status", session.Status)
		return nil
	}
	session.UpdatedAt = r.now().UTC()
	if err := r.sessions.Save(ctx, session); err != nil {
		return errors.Join(ErrFailedToSaveSession, err)
	}

	r.log.InfoContext(ctx, "one-time sale applied",
		"correlation_key", ev.CorrelationKey, "sale_id", ev.SaleID)
	return nil
}
