// Package redis wraps go-redis client construction with retrying connects,
// URL-based configuration and a healthcheck helper. The returned client is
// shared by the webhook event dedup store and the anonymous view counter.
package redis
