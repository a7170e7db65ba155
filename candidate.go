package solgate

import (
	"context"
	"time"
)

// Candidate is a snapshot of one eligible provider, taken at selection
// time so policies sort over stable values.
type Candidate struct {
	State *ProviderState

	Name              string
	Cost              float64
	AvgLatency        time.Duration
	RemainingFraction float64
	Priority          int
	Enhanced          bool
	// Index is the provider's registration order, used by round-robin.
	Index int
}

// Operation describes one logical outbound call for routing purposes.
type Operation struct {
	RequiresEnhancedData bool
	Preferred            string
	// Exclude names providers already failed in the current cascade.
	Exclude map[string]bool
}

// buildCandidates filters the registry down to eligible providers:
// circuit not open, not over quota, under the per-minute limit, and
// matching the operation's capability requirements.
func buildCandidates(ctx context.Context, reg *Registry, usage UsageTracker, breaker *CircuitBreaker, op Operation) []Candidate {
	var out []Candidate
	for i, st := range reg.List() {
		name := st.Config.Name
		if op.Exclude[name] {
			continue
		}
		if op.RequiresEnhancedData && !st.Config.EnhancedData {
			continue
		}
		if breaker.State(name) == CircuitOpen {
			continue
		}
		if usage.OverQuota(ctx, name) {
			continue
		}
		if !st.withinRPM() {
			continue
		}

		frac := 1.0
		if st.Config.MonthlyQuota > 0 {
			frac = float64(usage.Remaining(ctx, name)) / float64(st.Config.MonthlyQuota)
		}
		out = append(out, Candidate{
			State:             st,
			Name:              name,
			Cost:              st.Config.CostPerCall,
			AvgLatency:        st.AvgLatency(),
			RemainingFraction: frac,
			Priority:          st.Config.Priority,
			Enhanced:          st.Config.EnhancedData,
			Index:             i,
		})
	}
	return out
}
