package viewquota

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const counterKeyPrefix = "viewquota:"

// Counter tracks per-visitor view counts within a rolling window.
type Counter interface {
	// Incr increments the visitor's count and returns the new value.
	Incr(ctx context.Context, visitorID string) (int64, error)
}

type redisCounter struct {
	client redis.UniversalClient
	window time.Duration
}

// NewRedisCounter returns a Counter backed by redis INCR with a window TTL
// set on first increment.
func NewRedisCounter(client redis.UniversalClient, window time.Duration) Counter {
	return &redisCounter{client: client, window: window}
}

func (c *redisCounter) Incr(ctx context.Context, visitorID string) (int64, error) {
	key := counterKeyPrefix + visitorID
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		// First view opens the window; ignore expire errors, the key
		// still counts correctly and decays on the next window.
		_ = c.client.Expire(ctx, key, c.window).Err()
	}
	return count, nil
}

type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]*memoryEntry
	window time.Duration
	now    func() time.Time
}

type memoryEntry struct {
	count   int64
	resetAt time.Time
}

// NewMemoryCounter returns an in-process Counter for tests and local
// development.
func NewMemoryCounter(window time.Duration) Counter {
	return &memoryCounter{
		counts: make(map[string]*memoryEntry),
		window: window,
		now:    time.Now,
	}
}

func (c *memoryCounter) Incr(_ context.Context, visitorID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entry, ok := c.counts[visitorID]
	if !ok || now.After(entry.resetAt) {
		entry = &memoryEntry{resetAt: now.Add(c.window)}
		c.counts[visitorID] = entry
	}
	entry.count++
	return entry.count, nil
}
