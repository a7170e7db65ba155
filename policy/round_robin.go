package policy

import (
	"sort"
	"sync/atomic"

	"github.com/solgate-dev/solgate"
)

// RoundRobin cycles over the eligible set in registration order. The
// cyclic pointer advances once per selection, so consecutive calls with a
// stable eligible set walk it evenly.
type RoundRobin struct {
	counter atomic.Uint64
}

var _ solgate.Policy = (*RoundRobin)(nil)

func (p *RoundRobin) Select(candidates []solgate.Candidate) []solgate.Candidate {
	if len(candidates) == 0 {
		return nil
	}

	result := make([]solgate.Candidate, len(candidates))
	copy(result, candidates)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Index < result[j].Index
	})

	start := int(p.counter.Add(1)-1) % len(result)
	return append(result[start:len(result):len(result)], result[:start]...)
}
