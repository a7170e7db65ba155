package solgate

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level gateway configuration.
type Config struct {
	// RoutingStrategy selects the provider-ordering policy: one of
	// cost_optimized, performance_first, round_robin,
	// weighted_round_robin, enhanced_data_first.
	RoutingStrategy string `yaml:"routing_strategy"`

	Providers []ProviderConfig `yaml:"providers"`

	// QuotaReset is "calendar" (UTC month boundary, default) or
	// "rolling" (30-day window).
	QuotaReset QuotaResetMode `yaml:"quota_reset"`

	Breaker   BreakerConfig `yaml:"circuit_breaker"`
	Retry     RetryConfig   `yaml:"retry"`
	CacheTTLs TierTTLs      `yaml:"cache_ttls"`

	Webhook WebhookConfig  `yaml:"webhook"`
	Targets []TargetConfig `yaml:"targets"`
	Extract ExtractConfig  `yaml:"extract"`
}

// WebhookConfig configures the ingestion boundary.
type WebhookConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// SharedSecret is the bearer token inbound webhooks must present.
	SharedSecret string `yaml:"shared_secret"`
	// RateLimit is the per-source requests-per-minute ceiling.
	RateLimit int `yaml:"rate_limit"`
	// RateWindow is the sliding window the limit applies over.
	RateWindow time.Duration `yaml:"rate_window"`
	// DedupWindow is how long a seen event signature suppresses replays.
	DedupWindow time.Duration `yaml:"dedup_window"`
	// DispatchTimeout bounds the whole fan-out for one event.
	DispatchTimeout time.Duration `yaml:"dispatch_timeout"`
}

// TargetConfig is one downstream dispatch target.
type TargetConfig struct {
	Name    string        `yaml:"name"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ExtractConfig holds the signal-extraction thresholds.
type ExtractConfig struct {
	// LargeVolumeUSD is the transfer magnitude that emits a large-volume
	// signal.
	LargeVolumeUSD float64 `yaml:"large_volume_usd"`
	// VolumeCeilingUSD is the reference ceiling signal strength is
	// scaled against.
	VolumeCeilingUSD float64 `yaml:"volume_ceiling_usd"`
	// ListingPrograms are program ids whose instructions mark a new
	// token launch.
	ListingPrograms []string `yaml:"listing_programs"`
}

// LoadConfig reads and parses a YAML config file. Environment variables
// in the format ${VAR} are expanded before parsing.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("solgate: read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("solgate: parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.QuotaReset == "" {
		c.QuotaReset = ResetCalendar
	}
	if c.Breaker.FailureThreshold == 0 && c.Breaker.Cooldown == 0 {
		c.Breaker = DefaultBreakerConfig()
	}
	if c.Retry == (RetryConfig{}) {
		c.Retry = DefaultRetryConfig()
	}
	if c.CacheTTLs == (TierTTLs{}) {
		c.CacheTTLs = DefaultTierTTLs()
	}
	if c.Webhook.RateLimit == 0 {
		c.Webhook.RateLimit = 100
	}
	if c.Webhook.RateWindow == 0 {
		c.Webhook.RateWindow = time.Minute
	}
	if c.Webhook.DedupWindow == 0 {
		c.Webhook.DedupWindow = 5 * time.Minute
	}
	if c.Webhook.DispatchTimeout == 0 {
		c.Webhook.DispatchTimeout = 15 * time.Second
	}
	if c.Webhook.ListenAddr == "" {
		c.Webhook.ListenAddr = ":8080"
	}
	if c.Extract.LargeVolumeUSD == 0 {
		c.Extract.LargeVolumeUSD = 1000
	}
	if c.Extract.VolumeCeilingUSD == 0 {
		c.Extract.VolumeCeilingUSD = 100000
	}
}

// Validate checks the config for required fields and consistency.
func (c Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("solgate: config: at least one provider is required")
	}

	names := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("solgate: config: providers[%d]: name is required", i)
		}
		if names[p.Name] {
			return fmt.Errorf("solgate: config: duplicate provider name %q", p.Name)
		}
		names[p.Name] = true

		if p.Endpoint == "" {
			return fmt.Errorf("solgate: config: providers[%d] (%s): endpoint is required", i, p.Name)
		}
		if p.CostPerCall < 0 {
			return fmt.Errorf("solgate: config: providers[%d] (%s): cost_per_call must not be negative", i, p.Name)
		}
		if p.MonthlyQuota < 0 {
			return fmt.Errorf("solgate: config: providers[%d] (%s): monthly_quota must not be negative", i, p.Name)
		}
	}

	if c.QuotaReset != ResetCalendar && c.QuotaReset != ResetRolling {
		return fmt.Errorf("solgate: config: invalid quota_reset %q", c.QuotaReset)
	}

	for i, t := range c.Targets {
		if t.Name == "" {
			return fmt.Errorf("solgate: config: targets[%d]: name is required", i)
		}
		if t.URL == "" {
			return fmt.Errorf("solgate: config: targets[%d] (%s): url is required", i, t.Name)
		}
	}
	return nil
}
