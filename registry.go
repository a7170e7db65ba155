package solgate

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// ProviderState pairs a provider adapter with its static config and the
// continuously-updated call statistics. All mutable fields are guarded by
// the entry's own mutex so concurrent calls to the same provider cannot
// corrupt each other.
type ProviderState struct {
	Config  ProviderConfig
	Adapter Provider

	mu          sync.Mutex
	avgLatency  time.Duration
	successRate float64 // EMA, 0-100
	recentCalls []time.Time
}

// AvgLatency returns the rolling average call latency.
func (p *ProviderState) AvgLatency() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.avgLatency
}

// SuccessRate returns the exponential moving average success percentage.
func (p *ProviderState) SuccessRate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.successRate
}

// recordCall folds one call outcome into the latency and success EMAs.
func (p *ProviderState) recordCall(success bool, latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.avgLatency == 0 {
		p.avgLatency = latency
	} else {
		p.avgLatency = time.Duration(float64(p.avgLatency)*0.9 + float64(latency)*0.1)
	}

	outcome := 0.0
	if success {
		outcome = 100.0
	}
	p.successRate = p.successRate*0.9 + outcome*0.1

	now := time.Now()
	p.recentCalls = append(p.recentCalls, now)
	p.pruneRecent(now)
}

// withinRPM reports whether another call now would stay under the
// provider's requests-per-minute limit. Zero means unlimited.
func (p *ProviderState) withinRPM() bool {
	if p.Config.RPMLimit <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneRecent(time.Now())
	return len(p.recentCalls) < p.Config.RPMLimit
}

func (p *ProviderState) pruneRecent(now time.Time) {
	cutoff := now.Add(-time.Minute)
	valid := p.recentCalls[:0]
	for _, t := range p.recentCalls {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	p.recentCalls = valid
}

// Registry holds the configured providers in registration order. It is an
// explicit shared handle, never a package-level singleton, so tests can
// construct isolated registries.
type Registry struct {
	entries []*ProviderState
	byName  map[string]*ProviderState
	breaker *CircuitBreaker
}

// NewRegistry creates a registry from provider states. Registration order
// is preserved for round-robin policies.
func NewRegistry(breaker *CircuitBreaker, states ...*ProviderState) *Registry {
	r := &Registry{
		breaker: breaker,
		byName:  make(map[string]*ProviderState, len(states)),
	}
	for _, st := range states {
		st.successRate = 100.0
		r.entries = append(r.entries, st)
		r.byName[st.Config.Name] = st
	}
	return r
}

// List returns all registered providers in registration order.
func (r *Registry) List() []*ProviderState {
	out := make([]*ProviderState, len(r.entries))
	copy(out, r.entries)
	return out
}

// Get returns the provider with the given name, or nil.
func (r *Registry) Get(name string) *ProviderState {
	return r.byName[name]
}

// Health reports a provider's standing: Down while its circuit is open,
// Degraded when its success rate has fallen below half, Healthy otherwise.
func (r *Registry) Health(name string) Health {
	st := r.byName[name]
	if st == nil {
		return Down
	}
	if r.breaker.State(name) == CircuitOpen {
		return Down
	}
	if st.SuccessRate() < 50.0 {
		return Degraded
	}
	return Healthy
}

// HealthCheck probes every provider with a getHealth call and folds the
// outcome into its stats. Intended to run on a ticker.
func (r *Registry) HealthCheck(ctx context.Context) {
	req := RPCRequest{Method: "getHealth", Params: json.RawMessage(`[]`)}
	for _, st := range r.entries {
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		start := time.Now()
		_, err := st.Adapter.Call(probeCtx, req)
		cancel()
		st.recordCall(err == nil, time.Since(start))
		if err != nil {
			r.breaker.RecordFailure(st.Config.Name)
		} else {
			r.breaker.RecordSuccess(st.Config.Name)
		}
	}
}
