package subscription

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillpost/quillpost/pkg/pg"
)

// Postgres-backed stores. Schema lives in the goose migrations at the
// repository root.

type pgProfileStore struct {
	pool *pgxpool.Pool
}

// NewPGProfileStore returns a ProfileStore backed by postgres.
func NewPGProfileStore(pool *pgxpool.Pool) ProfileStore {
	return &pgProfileStore{pool: pool}
}

const profileColumns = `user_id, status, expires_at, auto_renewal, payment_retry_count,
	last_payment_attempt, grace_period_ends, external_subscription_id, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var (
		p          Profile
		externalID *string
	)
	err := row.Scan(&p.UserID, &p.Status, &p.ExpiresAt, &p.AutoRenewal, &p.PaymentRetryCount,
		&p.LastPaymentAttempt, &p.GracePeriodEnds, &externalID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	if externalID != nil {
		p.ExternalSubscriptionID = *externalID
	}
	return &p, nil
}

func (s *pgProfileStore) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM subscription_profiles WHERE user_id = $1`, userID)
	return scanProfile(row)
}

func (s *pgProfileStore) GetByExternalSubscriptionID(ctx context.Context, externalID string) (*Profile, error) {
	if externalID == "" {
		return nil, ErrProfileNotFound
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM subscription_profiles WHERE external_subscription_id = $1`, externalID)
	return scanProfile(row)
}

func (s *pgProfileStore) Create(ctx context.Context, p *Profile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscription_profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)`,
		p.UserID, p.Status, p.ExpiresAt, p.AutoRenewal, p.PaymentRetryCount,
		p.LastPaymentAttempt, p.GracePeriodEnds, p.ExternalSubscriptionID, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *pgProfileStore) Save(ctx context.Context, p *Profile) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE subscription_profiles
		SET status = $2, expires_at = $3, auto_renewal = $4, payment_retry_count = $5,
			last_payment_attempt = $6, grace_period_ends = $7,
			external_subscription_id = NULLIF($8, ''), updated_at = $9
		WHERE user_id = $1`,
		p.UserID, p.Status, p.ExpiresAt, p.AutoRenewal, p.PaymentRetryCount,
		p.LastPaymentAttempt, p.GracePeriodEnds, p.ExternalSubscriptionID, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

type pgSessionStore struct {
	pool *pgxpool.Pool
}

// NewPGSessionStore returns a SessionStore backed by postgres.
func NewPGSessionStore(pool *pgxpool.Pool) SessionStore {
	return &pgSessionStore{pool: pool}
}

const sessionColumns = `external_reference, status, plan_id, plan_type, expires_at,
	user_id, external_subscription_id, created_at, updated_at`

func scanSession(row pgx.Row) (*PaymentSession, error) {
	var (
		sess       PaymentSession
		externalID *string
	)
	err := row.Scan(&sess.ExternalReference, &sess.Status, &sess.PlanID, &sess.PlanType,
		&sess.ExpiresAt, &sess.UserID, &externalID, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if externalID != nil {
		sess.ExternalSubscriptionID = *externalID
	}
	return &sess, nil
}

func (s *pgSessionStore) Get(ctx context.Context, externalReference string) (*PaymentSession, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM payment_sessions WHERE external_reference = $1`, externalReference)
	return scanSession(row)
}

func (s *pgSessionStore) GetByExternalSubscriptionID(ctx context.Context, externalID string) (*PaymentSession, error) {
	if externalID == "" {
		return nil, ErrSessionNotFound
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM payment_sessions WHERE external_subscription_id = $1`, externalID)
	return scanSession(row)
}

func (s *pgSessionStore) Create(ctx context.Context, sess *PaymentSession) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO payment_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)`,
		sess.ExternalReference, sess.Status, sess.PlanID, sess.PlanType, sess.ExpiresAt,
		sess.UserID, sess.ExternalSubscriptionID, sess.CreatedAt, sess.UpdatedAt)
	return err
}

func (s *pgSessionStore) Save(ctx context.Context, sess *PaymentSession) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE payment_sessions
		SET status = $2, plan_id = $3, plan_type = $4, expires_at = $5,
			user_id = $6, external_subscription_id = NULLIF($7, ''), updated_at = $8
		WHERE external_reference = $1`,
		sess.ExternalReference, sess.Status, sess.PlanID, sess.PlanType, sess.ExpiresAt,
		sess.UserID, sess.ExternalSubscriptionID, sess.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

type pgLocker struct {
	pool *pgxpool.Pool
}

// NewPGLocker returns a Locker backed by postgres advisory locks. The lock
// transaction stays open while fn runs, serializing read-modify-write
// sequences on the same key across every instance sharing the database.
func NewPGLocker(pool *pgxpool.Pool) Locker {
	return &pgLocker{pool: pool}
}

func (l *pgLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return pg.WithAdvisoryLock(ctx, l.pool, key, func(ctx context.Context, _ pgx.Tx) error {
		return fn(ctx)
	})
}
