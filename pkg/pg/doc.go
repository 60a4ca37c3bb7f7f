// Package pg provides utilities for interacting with PostgreSQL using the
// pgx/v5 driver: connection pooling with retries, goose schema migrations,
// transaction-scoped advisory locks, health checks and common error helpers.
//
// The advisory lock helper exists for flows where several short-lived requests
// may race on the same logical row (webhook redeliveries for one subscription);
// callers wrap the read-modify-write in WithAdvisoryLock keyed by the entity's
// external identity.
package pg
