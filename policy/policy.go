// Package policy provides the routing policies the gateway selects
// providers with.
package policy

import (
	"fmt"

	"github.com/solgate-dev/solgate"
)

// ForStrategy returns the policy named in configuration.
func ForStrategy(name string) (solgate.Policy, error) {
	switch name {
	case "", "cost_optimized":
		return CostOptimized{}, nil
	case "performance_first":
		return PerformanceFirst{}, nil
	case "round_robin":
		return &RoundRobin{}, nil
	case "weighted_round_robin":
		return &WeightedRoundRobin{}, nil
	case "enhanced_data_first":
		return EnhancedDataFirst{}, nil
	default:
		return nil, fmt.Errorf("policy: unknown routing strategy %q", name)
	}
}
