package policy

import "github.com/solgate-dev/solgate"

// EnhancedDataFirst ranks providers with the enhanced-metadata capability
// ahead of the rest, with cost-optimized ordering within each group.
type EnhancedDataFirst struct{}

var _ solgate.Policy = (*EnhancedDataFirst)(nil)

func (EnhancedDataFirst) Select(candidates []solgate.Candidate) []solgate.Candidate {
	var enhanced, plain []solgate.Candidate
	for _, c := range candidates {
		if c.Enhanced {
			enhanced = append(enhanced, c)
		} else {
			plain = append(plain, c)
		}
	}

	var cost CostOptimized
	return append(cost.Select(enhanced), cost.Select(plain)...)
}
