package policy

import (
	"sort"

	"github.com/solgate-dev/solgate"
)

// CostOptimized orders candidates by ascending cost per request, breaking
// ties by ascending average latency.
type CostOptimized struct{}

var _ solgate.Policy = (*CostOptimized)(nil)

func (CostOptimized) Select(candidates []solgate.Candidate) []solgate.Candidate {
	result := make([]solgate.Candidate, len(candidates))
	copy(result, candidates)

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Cost != result[j].Cost {
			return result[i].Cost < result[j].Cost
		}
		return result[i].AvgLatency < result[j].AvgLatency
	})
	return result
}
