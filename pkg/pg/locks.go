package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithAdvisoryLock runs fn inside a transaction that holds a transaction-scoped
// advisory lock derived from key. The lock serializes concurrent read-modify-write
// sequences on the same logical entity (e.g. webhook deliveries for the same
// external subscription) and is released automatically on commit or rollback.
func WithAdvisoryLock(ctx context.Context, pool *pgxpool.Pool, key string, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin advisory lock tx: %w", err)
	}
	defer func() {
		// Rollback is a no-op after a successful commit.
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("acquire advisory lock %q: %w", key, err)
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit advisory lock tx: %w", err)
	}
	return nil
}
