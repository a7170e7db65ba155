// Package redis provides a Redis-backed Cache so multiple gateway
// instances share one response cache. Tier TTLs map directly onto Redis
// key expiry.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/solgate-dev/solgate"
)

// Cache is a Redis-backed response cache.
type Cache struct {
	client    goredis.Cmdable
	keyPrefix string
	ttls      solgate.TierTTLs
}

var _ solgate.Cache = (*Cache)(nil)

// Option configures Cache.
type Option func(*Cache)

// WithKeyPrefix sets the Redis key prefix (default "solgate:cache:").
func WithKeyPrefix(prefix string) Option {
	return func(c *Cache) { c.keyPrefix = prefix }
}

// WithTierTTLs overrides the per-tier expiry durations.
func WithTierTTLs(ttls solgate.TierTTLs) Option {
	return func(c *Cache) { c.ttls = ttls }
}

// New creates a Redis-backed Cache.
// The client must be a connected *goredis.Client or *goredis.ClusterClient.
func New(client goredis.Cmdable, opts ...Option) *Cache {
	c := &Cache{
		client:    client,
		keyPrefix: "solgate:cache:",
		ttls:      solgate.DefaultTierTTLs(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) cacheKey(key string) string {
	return c.keyPrefix + key
}

// GetOrCompute returns the cached payload for key, or runs compute and
// stores the result under the tier's TTL. Redis read and write failures
// degrade to a plain compute; a cache outage must never fail a request
// that a provider could serve.
func (c *Cache) GetOrCompute(ctx context.Context, key string, tier solgate.VolatilityTier, compute solgate.ComputeFunc) (json.RawMessage, bool, error) {
	rkey := c.cacheKey(key)

	val, err := c.client.Get(ctx, rkey).Bytes()
	if err == nil {
		return json.RawMessage(val), true, nil
	}
	if !errors.Is(err, goredis.Nil) && ctx.Err() != nil {
		return nil, false, ctx.Err()
	}

	payload, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}

	// Best effort write; the computed value is already in hand.
	c.client.Set(ctx, rkey, []byte(payload), c.ttls.For(tier))

	return payload, false, nil
}

// Invalidate removes one cached entry.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.cacheKey(key)).Err(); err != nil {
		return fmt.Errorf("solgate/redis: del: %w", err)
	}
	return nil
}
