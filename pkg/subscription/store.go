package subscription

import (
	"context"

	"github.com/google/uuid"
)

// ProfileStore persists subscription profiles. Implementations must return
// ErrProfileNotFound for missing records.
type ProfileStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*Profile, error)
	GetByExternalSubscriptionID(ctx context.Context, externalID string) (*Profile, error)
	Create(ctx context.Context, p *Profile) error
	Save(ctx context.Context, p *Profile) error
}

// SessionStore persists payment sessions keyed by their external reference,
// with a secondary lookup by the processor-side subscription identity.
// Implementations must return ErrSessionNotFound for missing records.
type SessionStore interface {
	Get(ctx context.Context, externalReference string) (*PaymentSession, error)
	GetByExternalSubscriptionID(ctx context.Context, externalID string) (*PaymentSession, error)
	Create(ctx context.Context, s *PaymentSession) error
	Save(ctx context.Context, s *PaymentSession) error
}

// Locker provides mutual exclusion around a read-modify-write sequence,
// keyed by an arbitrary string (the reconciler keys on the correlation
// reference or the external subscription ID). fn runs while the lock is
// held; the lock is released when fn returns.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// Deduper records webhook event identities so at-least-once deliveries apply
// at most one transition each.
type Deduper interface {
	// Seen atomically records eventID and reports whether it had already
	// been recorded.
	Seen(ctx context.Context, eventID string) (bool, error)
	// Forget removes a previously recorded eventID so a failed apply can
	// be retried by the processor.
	Forget(ctx context.Context, eventID string) error
}
