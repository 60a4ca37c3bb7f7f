package subscription

import "time"

// Status is the lifecycle state of a user's subscription. Transitions are
// applied only by the webhook reconciler, the lazy renewal hook on profile
// reads, and the explicit user actions (cancel, reactivate, renew).
type Status string

const (
	StatusActive               Status = "active"
	StatusExpired              Status = "expired"
	StatusCancelled            Status = "cancelled"
	StatusPaymentFailed        Status = "payment_failed"
	StatusGracePeriod          Status = "grace_period"
	StatusSuspended            Status = "suspended"
	StatusPriceChangeCancelled Status = "price_change_cancelled"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusExpired, StatusCancelled, StatusPaymentFailed,
		StatusGracePeriod, StatusSuspended, StatusPriceChangeCancelled:
		return true
	}
	return false
}

// SessionStatus is the state of a single checkout attempt. Sessions move
// forward only; see PaymentSession.Transition.
type SessionStatus string

const (
	SessionPending               SessionStatus = "pending"
	SessionPaid                  SessionStatus = "paid"
	SessionUsed                  SessionStatus = "used"
	SessionExpired               SessionStatus = "expired"
	SessionActiveSubscription    SessionStatus = "active_subscription"
	SessionCancelledSubscription SessionStatus = "cancelled_subscription"
)

const (
	// BillingPeriod is how far a successful recurring payment pushes the
	// access boundary. Extension is measured from the moment the payment
	// event is applied, not from the previous boundary.
	BillingPeriod = 30 * 24 * time.Hour

	// GracePeriodLength is the recovery window granted after the third
	// consecutive billing failure.
	GracePeriodLength = 7 * 24 * time.Hour

	// SessionTTL is how long a checkout session stays redeemable.
	SessionTTL = 48 * time.Hour
)
