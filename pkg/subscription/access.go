package subscription

import "time"

// HasAccess is the permissive access gate used for read-side features. It
// keeps subscribers with billing trouble (payment failed, grace period)
// inside the product so the UI can surface a recovery prompt instead of a
// paywall, and honors grandfathered access for cancelled and suspended
// profiles up to the paid-for expiry instant.
func HasAccess(p *Profile, now time.Time) bool {
	if p == nil {
		return false
	}
	switch p.Status {
	case StatusActive, StatusPaymentFailed, StatusGracePeriod:
		return true
	case StatusCancelled, StatusPriceChangeCancelled, StatusSuspended:
		return p.ExpiresAt != nil && !now.After(*p.ExpiresAt)
	default:
		return false
	}
}

// CanInteract is the strict gate for write-side features (commenting,
// liking, searching). Unlike HasAccess it does not grant unconditional
// access to profiles in billing trouble: payment-failed, grace-period and
// suspended profiles are excluded outright. Cancelled profiles keep their
// grandfathered window. Each protected operation declares which of the two
// gates it uses; they are not interchangeable.
func CanInteract(p *Profile, now time.Time) bool {
	if p == nil {
		return false
	}
	switch p.Status {
	case StatusActive:
		return true
	case StatusCancelled, StatusPriceChangeCancelled:
		return p.ExpiresAt != nil && !now.After(*p.ExpiresAt)
	default:
		return false
	}
}
