package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the per-user subscription record. It is created on the user's
// first successful renewal and never deleted by this package.
//
// ExpiresAt is the access boundary: for cancelled, suspended and
// price-change-cancelled profiles access persists up to and including that
// instant (grandfathered access), regardless of Status.
type Profile struct {
	UserID                 uuid.UUID  `json:"user_id"`
	Status                 Status     `json:"subscription_status"`
	ExpiresAt              *time.Time `json:"subscription_expires_at,omitempty"`
	AutoRenewal            bool       `json:"auto_renewal_enabled"`
	PaymentRetryCount      int        `json:"payment_retry_count"`
	LastPaymentAttempt     *time.Time `json:"last_payment_attempt,omitempty"`
	GracePeriodEnds        *time.Time `json:"grace_period_ends,omitempty"`
	ExternalSubscriptionID string     `json:"external_subscription_id,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// Clone returns a deep copy so stores can hand out profiles without aliasing
// their internal state.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.ExpiresAt = cloneTime(p.ExpiresAt)
	cp.LastPaymentAttempt = cloneTime(p.LastPaymentAttempt)
	cp.GracePeriodEnds = cloneTime(p.GracePeriodEnds)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
