package solgate

import "context"

// Router chooses a provider for an operation under the configured
// routing policy, consulting the usage tracker and circuit breaker.
type Router struct {
	reg     *Registry
	usage   UsageTracker
	breaker *CircuitBreaker
	policy  Policy
}

// NewRouter creates a router over the given registry.
func NewRouter(reg *Registry, usage UsageTracker, breaker *CircuitBreaker, policy Policy) *Router {
	if policy == nil {
		policy = defaultCostPolicy{}
	}
	return &Router{reg: reg, usage: usage, breaker: breaker, policy: policy}
}

// Rank returns the eligible providers for an operation in policy order.
// An eligible preferred provider jumps to the head of the order.
func (r *Router) Rank(ctx context.Context, op Operation) []Candidate {
	ordered := r.policy.Select(buildCandidates(ctx, r.reg, r.usage, r.breaker, op))

	if op.Preferred != "" {
		for i, c := range ordered {
			if c.Name == op.Preferred && i > 0 {
				copy(ordered[1:i+1], ordered[:i])
				ordered[0] = c
				break
			}
		}
	}
	return ordered
}

// Select returns the single best provider for an operation, or
// ErrNoProviders when the eligible set is empty. Callers fall back to the
// executor's cascade, which terminates in the synthetic responder.
func (r *Router) Select(ctx context.Context, op Operation) (Candidate, error) {
	ordered := r.Rank(ctx, op)
	if len(ordered) == 0 {
		return Candidate{}, ErrNoProviders
	}
	return ordered[0], nil
}
