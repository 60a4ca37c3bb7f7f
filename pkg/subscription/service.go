package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quillpost/quillpost/pkg/billing"
	"github.com/quillpost/quillpost/pkg/catalog"
)

// Service exposes the user-facing subscription operations. All mutations are
// authoritative on local state; processor calls made along the way are
// best-effort side effects that never block a local transition.
type Service interface {
	// Profile returns the user's subscription profile with the lazy
	// renewal hook applied: an Active profile whose expiry has passed is
	// transitioned to Expired before being returned, so the read path
	// never serves a stale Active status.
	Profile(ctx context.Context, userID uuid.UUID) (*Profile, error)

	// StartCheckout creates a payment session for the given plan and asks
	// the processor for a buyer approval link. userID may be uuid.Nil for
	// a visitor checking out before registration; the session is linked
	// later via LinkSession.
	StartCheckout(ctx context.Context, userID uuid.UUID, planID string) (*Checkout, error)

	// ValidateSession loads a session by its correlation reference,
	// lazily expiring a pending session whose TTL has lapsed.
	ValidateSession(ctx context.Context, externalReference string) (*PaymentSession, error)

	// LinkSession attaches a session to a user exactly once.
	LinkSession(ctx context.Context, externalReference string, userID uuid.UUID) error

	// Cancel stops future billing while preserving paid-for access until
	// the current expiry.
	Cancel(ctx context.Context, userID uuid.UUID) error

	// Reactivate restores a cancelled subscription that has not yet
	// reached its expiry.
	Reactivate(ctx context.Context, userID uuid.UUID) error

	// Renew activates a subscription from a completed checkout session.
	Renew(ctx context.Context, userID uuid.UUID, externalReference string) (*Profile, error)
}

// Checkout is the outcome of StartCheckout: the local correlation reference
// and the processor page the buyer must approve the subscription on.
type Checkout struct {
	Reference   string    `json:"reference"`
	ApprovalURL string    `json:"approval_url,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type service struct {
	profiles ProfileStore
	sessions SessionStore
	gateway  billing.Gateway
	plans    *catalog.Catalog
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

// NewService creates a Service. Panics if a required dependency is nil to
// fail fast during initialization.
func NewService(profiles ProfileStore, sessions SessionStore, gateway billing.Gateway, plans *catalog.Catalog, opts ...ServiceOption) Service {
	if profiles == nil {
		panic("subscription: ProfileStore is required")
	}
	if sessions == nil {
		panic("subscription: SessionStore is required")
	}
	if gateway == nil {
		panic("subscription: billing.Gateway is required")
	}
	if plans == nil {
		panic("subscription: plan catalog is required")
	}

	s := &service{
		profiles: profiles,
		sessions: sessions,
		gateway:  gateway,
		plans:    plans,
		notifier: noopNotifier{},
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if p.Status == StatusActive && p.ExpiresAt != nil && now.After(*p.ExpiresAt) {
		p.Status = StatusExpired
		p.AutoRenewal = false
		p.UpdatedAt = now
		if err := s.profiles.Save(ctx, p); err != nil {
			return nil, errors.Join(ErrFailedToSaveProfile, err)
		}
		s.stopProcessorBilling(ctx, p, "subscription expired")
	}
	return p, nil
}

func (s *service) StartCheckout(ctx context.Context, userID uuid.UUID, planID string) (*Checkout, error) {
	plan, err := s.plans.Plan(planID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	session := &PaymentSession{
		ExternalReference: uuid.NewString(),
		Status:            SessionPending,
		PlanID:            plan.ID,
		PlanType:          plan.Type,
		ExpiresAt:         now.Add(SessionTTL),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if userID != uuid.Nil {
		session.UserID = &userID
	}

	checkout := &Checkout{Reference: session.ExternalReference, ExpiresAt: session.ExpiresAt}

	// Recurring plans go through the processor's subscription approval
	// flow; one-time plans only need the local session, the sale event
	// marks it paid later.
	if plan.Type == catalog.PlanTypeRecurring {
		cs, err := s.gateway.CreateSubscription(ctx, session.ExternalReference, plan.ProcessorPlanID)
		if err != nil {
			return nil, errors.Join(ErrCheckoutFailed, err)
		}
		session.ExternalSubscriptionID = cs.SubscriptionID
		checkout.ApprovalURL = cs.ApprovalURL
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, errors.Join(ErrFailedToSaveSession, err)
	}

	s.log.InfoContext(ctx, "checkout started",
		"reference", session.ExternalReference, "plan_id", plan.ID, "plan_type", plan.Type)
	return checkout, nil
}

func (s *service) ValidateSession(ctx context.Context, externalReference string) (*PaymentSession, error) {
	session, err := s.sessions.Get(ctx, externalReference)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if session.Status == SessionPending && session.Expired(now) {
		if err := session.Transition(SessionExpired); err != nil {
			return nil, err
		}
		session.UpdatedAt = now
		if err := s.sessions.Save(ctx, session); err != nil {
			return nil, errors.Join(ErrFailedToSaveSession, err)
		}
		return session, ErrSessionExpired
	}
	return session, nil
}

func (s *service) LinkSession(ctx context.Context, externalReference string, userID uuid.UUID) error {
	session, err := s.sessions.Get(ctx, externalReference)
	if err != nil {
		return err
	}
	if session.UserID != nil {
		return ErrSessionAlreadyLinked
	}

	session.UserID = &userID
	session.UpdatedAt = s.now().UTC()
	if err := s.sessions.Save(ctx, session); err != nil {
		return errors.Join(ErrFailedToSaveSession, err)
	}
	return nil
}

// Cancel stops future billing. Allowed only from active, payment-failed or
// grace-period profiles; the profile keeps its expiry so the user retains
// access for the remainder of the paid period.
func (s *service) Cancel(ctx context.Context, userID uuid.UUID) error {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return err
	}

	switch p.Status {
	case StatusCancelled, StatusPriceChangeCancelled:
		return ErrAlreadyCancelled
	case StatusActive, StatusPaymentFailed, StatusGracePeriod:
	default:
		return fmt.Errorf("%w: status %s", ErrCancelNotAllowed, p.Status)
	}

	s.stopProcessorBilling(ctx, p, "user requested cancellation")

	p.Status = StatusCancelled
	p.AutoRenewal = false
	p.PaymentRetryCount = 0
	p.LastPaymentAttempt = nil
	p.GracePeriodEnds = nil
	p.UpdatedAt = s.now().UTC()
	if err := s.profiles.Save(ctx, p); err != nil {
		return errors.Join(ErrFailedToSaveProfile, err)
	}

	s.log.InfoContext(ctx, "subscription cancelled", "user_id", userID)
	return nil
}

// Reactivate restores a cancelled subscription while its paid-for window is
// still open. Once the window has closed the caller must renew instead.
func (s *service) Reactivate(ctx context.Context, userID uuid.UUID) error {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return err
	}
	if p.Status != StatusCancelled {
		return fmt.Errorf("%w: status %s", ErrReactivateNotAllowed, p.Status)
	}

	now := s.now().UTC()
	if p.ExpiresAt == nil || now.After(*p.ExpiresAt) {
		return ErrReactivateExpired
	}

	p.Status = StatusActive
	p.AutoRenewal = true
	p.PaymentRetryCount = 0
	p.UpdatedAt = now
	if err := s.profiles.Save(ctx, p); err != nil {
		return errors.Join(ErrFailedToSaveProfile, err)
	}

	if err := s.notifier.Notify(ctx, userID, NotificationReactivated, nil); err != nil {
		s.log.ErrorContext(ctx, "reactivation notification failed", "user_id", userID, "error", err)
	}
	s.log.InfoContext(ctx, "subscription reactivated", "user_id", userID)
	return nil
}

// Renew activates the profile from a completed checkout session and, when
// the session carries a processor subscription identity, transfers it to the
// profile. This is how a first-time subscriber's processor-side identity
// becomes linked to their account.
func (s *service) Renew(ctx context.Context, userID uuid.UUID, externalReference string) (*Profile, error) {
	session, err := s.sessions.Get(ctx, externalReference)
	if err != nil {
		return nil, err
	}

	switch session.Status {
	case SessionPaid, SessionActiveSubscription:
	default:
		return nil, fmt.Errorf("%w: status %s", ErrSessionNotPaid, session.Status)
	}

	now := s.now().UTC()

	created := false
	p, err := s.profiles.Get(ctx, userID)
	switch {
	case errors.Is(err, ErrProfileNotFound):
		// First subscription for this user.
		created = true
		p = &Profile{UserID: userID, Status: StatusExpired, CreatedAt: now}
	case err != nil:
		return nil, err
	}

	expires := now.Add(BillingPeriod)
	p.Status = StatusActive
	p.ExpiresAt = &expires
	p.AutoRenewal = session.PlanType == catalog.PlanTypeRecurring
	p.PaymentRetryCount = 0
	p.LastPaymentAttempt = nil
	p.GracePeriodEnds = nil
	if session.ExternalSubscriptionID != "" {
		p.ExternalSubscriptionID = session.ExternalSubscriptionID
	}
	p.UpdatedAt = now
	if created {
		err = s.profiles.Create(ctx, p)
	} else {
		err = s.profiles.Save(ctx, p)
	}
	if err != nil {
		return nil, errors.Join(ErrFailedToSaveProfile, err)
	}

	// One-time sessions are consumed; a recurring session stays
	// active_subscription as the live processor identity record.
	if session.Status == SessionPaid {
		if err := session.Transition(SessionUsed); err != nil {
			return nil, err
		}
	}
	if session.UserID == nil {
		session.UserID = &userID
	}
	session.UpdatedAt = now
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, errors.Join(ErrFailedToSaveSession, err)
	}

	s.log.InfoContext(ctx, "subscription renewed",
		"user_id", userID, "reference", externalReference, "expires_at", expires)
	return p, nil
}

// stopProcessorBilling cancels the processor-side subscription if one is
// linked. Failures are logged for operators and never surfaced: local state
// is the source of truth for access, the gateway call only stops rebilling.
func (s *service) stopProcessorBilling(ctx context.Context, p *Profile, reason string) {
	if p.ExternalSubscriptionID == "" {
		return
	}
	if err := s.gateway.CancelSubscription(ctx, p.ExternalSubscriptionID, reason); err != nil {
		s.log.ErrorContext(ctx, "processor-side cancel failed",
			"user_id", p.UserID, "external_subscription_id", p.ExternalSubscriptionID, "error", err)
	}
}
