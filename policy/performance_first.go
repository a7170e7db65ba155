package policy

import (
	"sort"

	"github.com/solgate-dev/solgate"
)

// PerformanceFirst orders candidates by ascending average latency,
// breaking ties by descending remaining quota fraction.
type PerformanceFirst struct{}

var _ solgate.Policy = (*PerformanceFirst)(nil)

func (PerformanceFirst) Select(candidates []solgate.Candidate) []solgate.Candidate {
	result := make([]solgate.Candidate, len(candidates))
	copy(result, candidates)

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].AvgLatency != result[j].AvgLatency {
			return result[i].AvgLatency < result[j].AvgLatency
		}
		return result[i].RemainingFraction > result[j].RemainingFraction
	})
	return result
}
