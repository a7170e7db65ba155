package solgate

import "context"

// Provider is the interface that RPC provider adapters must implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "helius", "quicknode").
	Name() string

	// Call issues one JSON-RPC request and returns the raw result payload.
	Call(ctx context.Context, req RPCRequest) ([]byte, error)
}

// ProviderConfig is the static declaration of one external data provider.
type ProviderConfig struct {
	Name         string  `yaml:"name"`
	Endpoint     string  `yaml:"endpoint"`
	APIKey       string  `yaml:"api_key"`
	MonthlyQuota int64   `yaml:"monthly_quota"`
	CostPerCall  float64 `yaml:"cost_per_call"`
	RPMLimit     int     `yaml:"rpm_limit"`
	Priority     int     `yaml:"priority"`
	EnhancedData bool    `yaml:"enhanced_data"`
	Webhooks     bool    `yaml:"webhooks"`
}

// Health describes the current standing of a provider.
type Health int

const (
	Healthy Health = iota
	Degraded
	Down
)

func (h Health) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}
