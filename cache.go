package solgate

import (
	"context"
	"encoding/json"
	"time"
)

// VolatilityTier classifies how quickly a cached value becomes stale.
// Hot data expires first, Frozen data last.
type VolatilityTier string

const (
	TierHot    VolatilityTier = "hot"
	TierWarm   VolatilityTier = "warm"
	TierCold   VolatilityTier = "cold"
	TierFrozen VolatilityTier = "frozen"
)

// TierTTLs maps each volatility tier to its cache TTL.
type TierTTLs struct {
	Hot    time.Duration `yaml:"hot"`
	Warm   time.Duration `yaml:"warm"`
	Cold   time.Duration `yaml:"cold"`
	Frozen time.Duration `yaml:"frozen"`
}

// DefaultTierTTLs mirrors the production defaults: one minute for hot
// data up to an hour for frozen data.
func DefaultTierTTLs() TierTTLs {
	return TierTTLs{
		Hot:    time.Minute,
		Warm:   5 * time.Minute,
		Cold:   10 * time.Minute,
		Frozen: time.Hour,
	}
}

// For returns the TTL for a tier, defaulting unknown tiers to Warm.
func (t TierTTLs) For(tier VolatilityTier) time.Duration {
	switch tier {
	case TierHot:
		return t.Hot
	case TierCold:
		return t.Cold
	case TierFrozen:
		return t.Frozen
	default:
		return t.Warm
	}
}

// ComputeFunc produces a value on a cache miss.
type ComputeFunc func(ctx context.Context) (json.RawMessage, error)

// Cache is the tiered response cache sitting in front of outbound calls.
// A miss for the same key from two concurrent callers may issue two
// underlying computations; coalescing is not required for correctness.
type Cache interface {
	// GetOrCompute returns the cached value for key if it is within its
	// TTL, otherwise invokes compute and stores the result with the
	// tier's TTL. The bool reports a cache hit.
	GetOrCompute(ctx context.Context, key string, tier VolatilityTier, compute ComputeFunc) (json.RawMessage, bool, error)
}
