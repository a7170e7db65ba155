package solgate_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solgate-dev/solgate"
	"github.com/solgate-dev/solgate/cache"
	"github.com/solgate-dev/solgate/policy"
	"github.com/solgate-dev/solgate/provider/synthetic"
	"github.com/solgate-dev/solgate/usage"
)

func noSleep(context.Context, time.Duration) error { return nil }

func fastRetry() solgate.RetryConfig {
	return solgate.RetryConfig{
		MaxRetries:  1,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		CallTimeout: time.Second,
	}
}

func newState(cfg solgate.ProviderConfig, adapter solgate.Provider) *solgate.ProviderState {
	return &solgate.ProviderState{Config: cfg, Adapter: adapter}
}

// Cost-0 provider wins on every call while eligible (scenario D).
func TestCostOptimized_FreeProviderWinsUntilIneligible(t *testing.T) {
	free := synthetic.New(synthetic.WithName("free"))
	paid := synthetic.New(synthetic.WithName("paid"))

	breaker := solgate.NewCircuitBreaker(solgate.DefaultBreakerConfig())
	reg := solgate.NewRegistry(breaker,
		newState(solgate.ProviderConfig{Name: "free", Endpoint: "http://free", CostPerCall: 0, MonthlyQuota: 3}, free),
		newState(solgate.ProviderConfig{Name: "paid", Endpoint: "http://paid", CostPerCall: 1}, paid),
	)

	tracker := usage.NewMemoryTracker(solgate.ResetCalendar)
	tracker.SetQuota("free", 3)

	gw := solgate.NewGateway(reg,
		solgate.WithUsageTracker(tracker),
		solgate.WithRetryConfig(fastRetry()),
		solgate.WithSleeper(noSleep),
	)

	for i := 0; i < 3; i++ {
		res, err := gw.Call(context.Background(), solgate.RPCRequest{Method: "getSlot"})
		require.NoError(t, err)
		assert.Equal(t, "free", res.Provider)
	}

	// Quota exhausted: routing must move to the paid provider.
	res, err := gw.Call(context.Background(), solgate.RPCRequest{Method: "getSlot"})
	require.NoError(t, err)
	assert.Equal(t, "paid", res.Provider)
	assert.EqualValues(t, 3, free.CallCount())
}

func TestCascade_FailoverToNextProvider(t *testing.T) {
	primary := synthetic.New(synthetic.WithName("primary"),
		synthetic.WithError(solgate.ErrProviderUnavailable))
	fallback := synthetic.New(synthetic.WithName("fallback"))

	breaker := solgate.NewCircuitBreaker(solgate.BreakerConfig{FailureThreshold: 10, Cooldown: time.Minute})
	reg := solgate.NewRegistry(breaker,
		newState(solgate.ProviderConfig{Name: "primary", Endpoint: "http://p", CostPerCall: 0}, primary),
		newState(solgate.ProviderConfig{Name: "fallback", Endpoint: "http://f", CostPerCall: 1}, fallback),
	)

	gw := solgate.NewGateway(reg,
		solgate.WithRetryConfig(fastRetry()),
		solgate.WithSleeper(noSleep),
	)

	res, err := gw.Call(context.Background(), solgate.RPCRequest{Method: "getSlot"})
	require.NoError(t, err)
	assert.Equal(t, "fallback", res.Provider)
	// 1 + MaxRetries attempts on primary, then one on fallback.
	assert.Equal(t, 3, res.Attempts)
	assert.EqualValues(t, 2, primary.CallCount())
}

// All providers down: the caller still gets a result (scenario C).
func TestCascadeExhausted_ReturnsDegradedResult(t *testing.T) {
	breaker := solgate.NewCircuitBreaker(solgate.DefaultBreakerConfig())
	var states []*solgate.ProviderState
	for _, name := range []string{"a", "b", "c"} {
		states = append(states, newState(
			solgate.ProviderConfig{Name: name, Endpoint: "http://" + name},
			synthetic.New(synthetic.WithName(name), synthetic.WithError(solgate.ErrProviderUnavailable)),
		))
	}
	reg := solgate.NewRegistry(breaker, states...)

	gw := solgate.NewGateway(reg,
		solgate.WithRetryConfig(fastRetry()),
		solgate.WithSleeper(noSleep),
	)

	res, err := gw.Call(context.Background(), solgate.RPCRequest{Method: "getSlot"})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, "synthetic", res.Provider)

	var body struct {
		Degraded bool `json:"degraded"`
	}
	require.NoError(t, json.Unmarshal(res.Payload, &body))
	assert.True(t, body.Degraded)
}

func TestBreakerOpens_ProviderSkippedUntilCooldown(t *testing.T) {
	failing := synthetic.New(synthetic.WithName("flaky"),
		synthetic.WithError(solgate.ErrProviderUnavailable))

	clock := time.Now()
	breaker := solgate.NewCircuitBreaker(solgate.BreakerConfig{
		FailureThreshold: 2,
		Cooldown:         30 * time.Second,
	}).WithClock(func() time.Time { return clock })

	reg := solgate.NewRegistry(breaker,
		newState(solgate.ProviderConfig{Name: "flaky", Endpoint: "http://x"}, failing),
	)

	gw := solgate.NewGateway(reg,
		solgate.WithRetryConfig(solgate.RetryConfig{
			MaxRetries:  5,
			BaseDelay:   time.Millisecond,
			MaxDelay:    time.Millisecond,
			CallTimeout: time.Second,
		}),
		solgate.WithSleeper(noSleep),
	)

	res, err := gw.Call(context.Background(), solgate.RPCRequest{Method: "getSlot"})
	require.NoError(t, err)
	assert.True(t, res.Degraded)

	// The retry loop stops at the threshold, not at MaxRetries.
	assert.EqualValues(t, 2, failing.CallCount())
	assert.Equal(t, solgate.CircuitOpen, breaker.State("flaky"))

	// While open, no real call happens at all.
	_, err = gw.Call(context.Background(), solgate.RPCRequest{Method: "getSlot"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, failing.CallCount())

	// After the cooldown the circuit probes again.
	clock = clock.Add(31 * time.Second)
	assert.Equal(t, solgate.CircuitHalfOpen, breaker.State("flaky"))

	_, err = gw.Call(context.Background(), solgate.RPCRequest{Method: "getSlot"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, failing.CallCount())
}

func TestFatalError_SurfacesToCaller(t *testing.T) {
	bad := synthetic.New(synthetic.WithName("bad"),
		synthetic.WithError(solgate.ErrAuthFailed))

	breaker := solgate.NewCircuitBreaker(solgate.DefaultBreakerConfig())
	reg := solgate.NewRegistry(breaker,
		newState(solgate.ProviderConfig{Name: "bad", Endpoint: "http://bad"}, bad),
	)

	gw := solgate.NewGateway(reg,
		solgate.WithRetryConfig(fastRetry()),
		solgate.WithSleeper(noSleep),
	)

	_, err := gw.Call(context.Background(), solgate.RPCRequest{Method: "getSlot"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, solgate.ErrAuthFailed))

	var gerr *solgate.GatewayError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, "bad", gerr.Provider)
	assert.EqualValues(t, 1, bad.CallCount())
}

func TestCacheHit_SkipsProviderEntirely(t *testing.T) {
	prov := synthetic.New(synthetic.WithName("p"),
		synthetic.WithResponseFunc(func(solgate.RPCRequest) ([]byte, error) {
			return []byte(`{"slot":42}`), nil
		}))

	breaker := solgate.NewCircuitBreaker(solgate.DefaultBreakerConfig())
	reg := solgate.NewRegistry(breaker,
		newState(solgate.ProviderConfig{Name: "p", Endpoint: "http://p"}, prov),
	)

	gw := solgate.NewGateway(reg,
		solgate.WithCache(cache.NewMemory(solgate.DefaultTierTTLs())),
		solgate.WithRetryConfig(fastRetry()),
		solgate.WithSleeper(noSleep),
	)

	req := solgate.RPCRequest{Method: "getSlot", Tier: solgate.TierHot}

	first, err := gw.Call(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := gw.Call(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.JSONEq(t, string(first.Payload), string(second.Payload))
	assert.EqualValues(t, 1, prov.CallCount())
}

// A degraded synthetic result must never be written to the cache: the
// placeholder is recomputed on every call, and the first genuine result
// after recovery is the one that gets cached.
func TestDegradedResult_NotServedFromCache(t *testing.T) {
	var healthy atomic.Bool
	prov := synthetic.New(synthetic.WithName("p"),
		synthetic.WithResponseFunc(func(solgate.RPCRequest) ([]byte, error) {
			if !healthy.Load() {
				return nil, solgate.ErrProviderUnavailable
			}
			return []byte(`{"slot":99}`), nil
		}))

	breaker := solgate.NewCircuitBreaker(solgate.BreakerConfig{
		FailureThreshold: 100,
		Cooldown:         time.Minute,
	})
	reg := solgate.NewRegistry(breaker,
		newState(solgate.ProviderConfig{Name: "p", Endpoint: "http://p"}, prov),
	)

	gw := solgate.NewGateway(reg,
		solgate.WithCache(cache.NewMemory(solgate.DefaultTierTTLs())),
		solgate.WithRetryConfig(fastRetry()),
		solgate.WithSleeper(noSleep),
	)

	req := solgate.RPCRequest{Method: "getSlot", Tier: solgate.TierFrozen}

	first, err := gw.Call(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, first.Degraded)
	assert.False(t, first.Cached)

	second, err := gw.Call(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Degraded)
	assert.False(t, second.Cached)

	healthy.Store(true)
	third, err := gw.Call(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, third.Degraded)
	assert.Equal(t, "p", third.Provider)

	fourth, err := gw.Call(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, fourth.Cached)
	assert.JSONEq(t, `{"slot":99}`, string(fourth.Payload))
}

type cacheEventRecorder struct {
	solgate.NoopMeter
	events []solgate.CacheEvent
}

func (r *cacheEventRecorder) OnCache(e solgate.CacheEvent) { r.events = append(r.events, e) }

// Cache events fire only for lookups that served a result: a failed
// compute stores nothing and must not count as a miss.
func TestCacheEvents_OnlyEmittedForServedLookups(t *testing.T) {
	bad := synthetic.New(synthetic.WithName("bad"),
		synthetic.WithError(solgate.ErrAuthFailed))

	breaker := solgate.NewCircuitBreaker(solgate.DefaultBreakerConfig())
	reg := solgate.NewRegistry(breaker,
		newState(solgate.ProviderConfig{Name: "bad", Endpoint: "http://bad"}, bad),
	)

	rec := &cacheEventRecorder{}
	gw := solgate.NewGateway(reg,
		solgate.WithCache(cache.NewMemory(solgate.DefaultTierTTLs())),
		solgate.WithMeter(rec),
		solgate.WithRetryConfig(fastRetry()),
		solgate.WithSleeper(noSleep),
	)

	_, err := gw.Call(context.Background(), solgate.RPCRequest{Method: "getSlot", Tier: solgate.TierHot})
	require.Error(t, err)
	assert.Empty(t, rec.events)

	good := synthetic.New(synthetic.WithName("good"))
	reg2 := solgate.NewRegistry(solgate.NewCircuitBreaker(solgate.DefaultBreakerConfig()),
		newState(solgate.ProviderConfig{Name: "good", Endpoint: "http://good"}, good),
	)
	rec2 := &cacheEventRecorder{}
	gw2 := solgate.NewGateway(reg2,
		solgate.WithCache(cache.NewMemory(solgate.DefaultTierTTLs())),
		solgate.WithMeter(rec2),
		solgate.WithRetryConfig(fastRetry()),
		solgate.WithSleeper(noSleep),
	)

	req := solgate.RPCRequest{Method: "getSlot", Tier: solgate.TierHot}
	_, err = gw2.Call(context.Background(), req)
	require.NoError(t, err)
	_, err = gw2.Call(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, rec2.events, 2)
	assert.False(t, rec2.events[0].Hit)
	assert.True(t, rec2.events[1].Hit)
}

func TestEnhancedDataRequirement_FiltersProviders(t *testing.T) {
	plain := synthetic.New(synthetic.WithName("plain"))
	enhanced := synthetic.New(synthetic.WithName("enhanced"))

	breaker := solgate.NewCircuitBreaker(solgate.DefaultBreakerConfig())
	reg := solgate.NewRegistry(breaker,
		newState(solgate.ProviderConfig{Name: "plain", Endpoint: "http://p", CostPerCall: 0}, plain),
		newState(solgate.ProviderConfig{Name: "enhanced", Endpoint: "http://e", CostPerCall: 1, EnhancedData: true}, enhanced),
	)

	gw := solgate.NewGateway(reg,
		solgate.WithRetryConfig(fastRetry()),
		solgate.WithSleeper(noSleep),
	)

	res, err := gw.Call(context.Background(), solgate.RPCRequest{
		Method:               "getAsset",
		RequiresEnhancedData: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "enhanced", res.Provider)
	assert.EqualValues(t, 0, plain.CallCount())
}

func TestPreferredProvider_JumpsToHeadWhenEligible(t *testing.T) {
	cheap := synthetic.New(synthetic.WithName("cheap"))
	preferred := synthetic.New(synthetic.WithName("preferred"))

	breaker := solgate.NewCircuitBreaker(solgate.DefaultBreakerConfig())
	reg := solgate.NewRegistry(breaker,
		newState(solgate.ProviderConfig{Name: "cheap", Endpoint: "http://c", CostPerCall: 0}, cheap),
		newState(solgate.ProviderConfig{Name: "preferred", Endpoint: "http://pr", CostPerCall: 1}, preferred),
	)

	gw := solgate.NewGateway(reg,
		solgate.WithRetryConfig(fastRetry()),
		solgate.WithSleeper(noSleep),
	)

	res, err := gw.Call(context.Background(), solgate.RPCRequest{
		Method:    "getSlot",
		Preferred: "preferred",
	})
	require.NoError(t, err)
	assert.Equal(t, "preferred", res.Provider)
}

func TestRoundRobin_RotatesAcrossProviders(t *testing.T) {
	a := synthetic.New(synthetic.WithName("a"))
	b := synthetic.New(synthetic.WithName("b"))

	breaker := solgate.NewCircuitBreaker(solgate.DefaultBreakerConfig())
	reg := solgate.NewRegistry(breaker,
		newState(solgate.ProviderConfig{Name: "a", Endpoint: "http://a"}, a),
		newState(solgate.ProviderConfig{Name: "b", Endpoint: "http://b"}, b),
	)

	pol, err := policy.ForStrategy("round_robin")
	require.NoError(t, err)

	gw := solgate.NewGateway(reg,
		solgate.WithPolicy(pol),
		solgate.WithRetryConfig(fastRetry()),
		solgate.WithSleeper(noSleep),
	)

	seen := make(map[string]int)
	for i := 0; i < 4; i++ {
		res, err := gw.Call(context.Background(), solgate.RPCRequest{Method: "getSlot"})
		require.NoError(t, err)
		seen[res.Provider]++
	}
	assert.Equal(t, 2, seen["a"])
	assert.Equal(t, 2, seen["b"])
}

func TestUsageTracker_NeverExceedsQuota(t *testing.T) {
	prov := synthetic.New(synthetic.WithName("metered"))

	breaker := solgate.NewCircuitBreaker(solgate.DefaultBreakerConfig())
	reg := solgate.NewRegistry(breaker,
		newState(solgate.ProviderConfig{Name: "metered", Endpoint: "http://m", MonthlyQuota: 5, CostPerCall: 0.01}, prov),
	)

	tracker := usage.NewMemoryTracker(solgate.ResetCalendar)
	tracker.SetQuota("metered", 5)

	gw := solgate.NewGateway(reg,
		solgate.WithUsageTracker(tracker),
		solgate.WithRetryConfig(fastRetry()),
		solgate.WithSleeper(noSleep),
	)

	for i := 0; i < 10; i++ {
		_, err := gw.Call(context.Background(), solgate.RPCRequest{Method: "getSlot"})
		require.NoError(t, err)
	}

	snap := tracker.Snapshot(context.Background())
	assert.EqualValues(t, 5, snap["metered"].Requests)
	assert.EqualValues(t, 5, prov.CallCount())
	assert.InDelta(t, 0.05, snap["metered"].Cost, 1e-9)
}
