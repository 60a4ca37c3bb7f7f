package billing

import (
	"context"
	"time"
)

// Gateway is the minimal interface the subscription core needs from the
// recurring-billing processor. Local state is the source of truth for access;
// every gateway call is a downstream side effect with a bounded timeout, and a
// failed call must never prevent a local state transition from committing.
type Gateway interface {
	// CreatePlan registers a recurring plan with the processor and returns the
	// processor's plan identifier.
	CreatePlan(ctx context.Context, req PlanRequest) (string, error)

	// CreateSubscription starts a recurring subscription for the given
	// processor plan. The correlation key is a locally generated opaque string
	// the processor round-trips in webhook events so they can be mapped back
	// to a local payment session.
	CreateSubscription(ctx context.Context, correlationKey, planID string) (*CheckoutSession, error)

	// CancelSubscription stops future billing for a processor-side
	// subscription. Success is signaled by the processor's "no content"
	// response; any other status is reported as ErrCancelRejected.
	CancelSubscription(ctx context.Context, externalID, reason string) error

	// GetSubscriptionStatus returns the processor's view of a subscription.
	GetSubscriptionStatus(ctx context.Context, externalID string) (*SubscriptionStatus, error)

	// GetSale fetches a one-time payment so its state can be verified before
	// a payment session is marked paid.
	GetSale(ctx context.Context, saleID string) (*Sale, error)
}

// PlanRequest describes a recurring plan to register with the processor.
type PlanRequest struct {
	Name        string
	Description string
	Amount      int64  // smallest currency unit
	Currency    string // ISO 4217
	Interval    string // "MONTH" or "YEAR"
}

// CheckoutSession is the processor-side handle for a newly created
// subscription awaiting buyer approval.
type CheckoutSession struct {
	SubscriptionID string
	ApprovalURL    string
}

// SubscriptionStatus is the processor's view of a recurring subscription.
type SubscriptionStatus struct {
	Status          string
	NextBillingTime time.Time
}

// Sale is a one-time (non-recurring) payment resource.
type Sale struct {
	ID    string
	State string // "completed" means the payment cleared
}
