package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// dedupKeyPrefix namespaces event-identity keys in the shared redis instance.
const dedupKeyPrefix = "billing:event:"

// DedupTTL bounds how long an event identity is remembered. Processors stop
// redelivering long before this window closes.
const DedupTTL = 72 * time.Hour

type redisDeduper struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisDeduper returns a Deduper backed by redis SETNX with a TTL.
func NewRedisDeduper(client redis.UniversalClient) Deduper {
	return &redisDeduper{client: client, ttl: DedupTTL}
}

func (d *redisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	set, err := d.client.SetNX(ctx, dedupKeyPrefix+eventID, 1, d.ttl).Result()
	if err != nil {
		return false, errors.Join(errors.New("dedup check failed"), err)
	}
	return !set, nil
}

func (d *redisDeduper) Forget(ctx context.Context, eventID string) error {
	return d.client.Del(ctx, dedupKeyPrefix+eventID).Err()
}
