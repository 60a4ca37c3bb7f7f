package subscription

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quillpost/quillpost/pkg/catalog"
)

// PaymentSession is one checkout attempt, keyed by a locally generated
// correlation reference that the processor round-trips back in its events.
//
// UserID is nil until the session is consumed by a registration; linking is
// one-way and happens at most once.
type PaymentSession struct {
	ExternalReference      string           `json:"external_reference"`
	Status                 SessionStatus    `json:"status"`
	PlanID                 string           `json:"plan_id"`
	PlanType               catalog.PlanType `json:"plan_type"`
	ExpiresAt              time.Time        `json:"expires_at"`
	UserID                 *uuid.UUID       `json:"user_id,omitempty"`
	ExternalSubscriptionID string           `json:"external_subscription_id,omitempty"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

// sessionEdges is the forward-only transition chain. Absent statuses are
// terminal.
var sessionEdges = map[SessionStatus][]SessionStatus{
	SessionPending:            {SessionPaid, SessionExpired, SessionActiveSubscription},
	SessionPaid:               {SessionUsed},
	SessionActiveSubscription: {SessionCancelledSubscription},
}

// CanTransition reports whether the chain permits moving from the session's
// current status to next.
func (s *PaymentSession) CanTransition(next SessionStatus) bool {
	for _, allowed := range sessionEdges[s.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition advances the session along the forward-only chain, returning
// ErrInvalidSessionTransition when the move would regress or fork a terminal
// state. A transition to the current status is a no-op.
func (s *PaymentSession) Transition(next SessionStatus) error {
	if s.Status == next {
		return nil
	}
	if !s.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidSessionTransition, s.Status, next)
	}
	s.Status = next
	return nil
}

// Expired reports whether the session's TTL has lapsed.
func (s *PaymentSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Clone returns a deep copy of the session.
func (s *PaymentSession) Clone() *PaymentSession {
	if s == nil {
		return nil
	}
	cp := *s
	if s.UserID != nil {
		id := *s.UserID
		cp.UserID = &id
	}
	return &cp
}
