package solgate

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// errUncacheable aborts the cache store for results that must not be
// replayed later, such as degraded synthetic responses.
var errUncacheable = errors.New("solgate: uncacheable result")

// Gateway is the resilient multi-provider request gateway: cache in
// front, policy-driven routing, per-provider retry, cascading failover
// and a synthetic terminal fallback.
type Gateway struct {
	registry  *Registry
	router    *Router
	policy    Policy
	usage     UsageTracker
	breaker   *CircuitBreaker
	cache     Cache
	meter     Meter
	retry     RetryConfig
	synthetic Provider
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithPolicy sets the routing policy.
func WithPolicy(p Policy) Option {
	return func(g *Gateway) { g.policy = p }
}

// WithUsageTracker sets the usage tracker.
func WithUsageTracker(u UsageTracker) Option {
	return func(g *Gateway) { g.usage = u }
}

// WithCache sets the response cache.
func WithCache(c Cache) Option {
	return func(g *Gateway) { g.cache = c }
}

// WithMeter sets the meter.
func WithMeter(m Meter) Option {
	return func(g *Gateway) { g.meter = m }
}

// WithRetryConfig sets the retry/backoff parameters.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(g *Gateway) { g.retry = cfg }
}

// WithSynthetic sets the terminal fallback provider.
func WithSynthetic(p Provider) Option {
	return func(g *Gateway) { g.synthetic = p }
}

// WithSleeper overrides the backoff sleep. Tests use this to run the
// retry schedule without real delays.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Gateway) { g.sleep = sleep }
}

// NewGateway creates a Gateway over the given registry. Defaults
// (cost-optimized policy, unlimited usage, no cache, noop meter,
// built-in synthetic responder) are used unless overridden via options.
func NewGateway(reg *Registry, opts ...Option) *Gateway {
	g := &Gateway{
		registry: reg,
		breaker:  reg.breaker,
		retry:    DefaultRetryConfig(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}

	// Apply defaults after options.
	if g.policy == nil {
		g.policy = defaultCostPolicy{}
	}
	if g.usage == nil {
		g.usage = unlimitedUsage{}
	}
	if g.meter == nil {
		g.meter = NoopMeter{}
	}
	if g.synthetic == nil {
		g.synthetic = degradedResponder{}
	}
	g.router = NewRouter(reg, g.usage, g.breaker, g.policy)
	return g
}

// Router exposes the gateway's request router.
func (g *Gateway) Router() *Router { return g.router }

// Call executes one logical RPC. On a cache hit the provider path is
// skipped entirely; otherwise the executor runs the retry/cascade
// sequence. The caller always receives a result, possibly degraded.
// Degraded results are never written to the cache, so the synthetic
// placeholder cannot be replayed as a genuine response once providers
// recover.
func (g *Gateway) Call(ctx context.Context, req RPCRequest) (RPCResult, error) {
	if g.cache == nil {
		return g.execute(ctx, req)
	}

	key := req.CacheKey()
	var computed RPCResult
	payload, hit, err := g.cache.GetOrCompute(ctx, key, req.Tier, func(ctx context.Context) (json.RawMessage, error) {
		res, err := g.execute(ctx, req)
		if err != nil {
			return nil, err
		}
		computed = res
		if res.Degraded {
			return nil, errUncacheable
		}
		return res.Payload, nil
	})
	if errors.Is(err, errUncacheable) {
		return computed, nil
	}
	if err != nil {
		return RPCResult{}, err
	}
	g.meter.OnCache(CacheEvent{Key: key, Tier: req.Tier, Hit: hit})
	if hit {
		return RPCResult{Payload: payload, Cached: true}, nil
	}
	return computed, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// unlimitedUsage is the default tracker: everything allowed, nothing
// accounted.
type unlimitedUsage struct{}

func (unlimitedUsage) Record(context.Context, string, float64) error { return nil }
func (unlimitedUsage) OverQuota(context.Context, string) bool        { return false }
func (unlimitedUsage) Remaining(context.Context, string) int64       { return 0 }
func (unlimitedUsage) Snapshot(context.Context) map[string]ProviderUsage {
	return nil
}

// degradedResponder is the built-in synthetic terminal fallback. It
// echoes a clearly-flagged empty result so callers are never left
// without one.
type degradedResponder struct{}

func (degradedResponder) Name() string { return "synthetic" }

func (degradedResponder) Call(_ context.Context, req RPCRequest) ([]byte, error) {
	body, _ := json.Marshal(map[string]any{
		"degraded": true,
		"method":   req.Method,
		"result":   nil,
	})
	return body, nil
}
