package policy

import (
	"sort"
	"sync/atomic"

	"github.com/solgate-dev/solgate"
)

// WeightedRoundRobin cycles over the eligible set with each provider
// appearing in proportion to its static priority. A provider with
// priority 2 is selected twice as often as one with priority 1.
type WeightedRoundRobin struct {
	counter atomic.Uint64
}

var _ solgate.Policy = (*WeightedRoundRobin)(nil)

func (p *WeightedRoundRobin) Select(candidates []solgate.Candidate) []solgate.Candidate {
	if len(candidates) == 0 {
		return nil
	}

	ordered := make([]solgate.Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})

	total := 0
	for _, c := range ordered {
		total += weight(c)
	}

	target := int(p.counter.Add(1)-1) % total
	first := 0
	acc := 0
	for i, c := range ordered {
		acc += weight(c)
		if acc > target {
			first = i
			break
		}
	}

	return append(ordered[first:len(ordered):len(ordered)], ordered[:first]...)
}

func weight(c solgate.Candidate) int {
	if c.Priority > 0 {
		return c.Priority
	}
	return 1
}
