package solgate

import "sort"

// Policy orders eligible candidates for a routed call. Select returns the
// candidates highest priority first; the executor walks the order as its
// failover cascade.
type Policy interface {
	Select(candidates []Candidate) []Candidate
}

// defaultCostPolicy is an inline cost-optimized policy so the gateway
// works without importing the policy subpackage.
type defaultCostPolicy struct{}

func (defaultCostPolicy) Select(candidates []Candidate) []Candidate {
	result := make([]Candidate, len(candidates))
	copy(result, candidates)
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Cost != result[j].Cost {
			return result[i].Cost < result[j].Cost
		}
		return result[i].AvgLatency < result[j].AvgLatency
	})
	return result
}
