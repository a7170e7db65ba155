package solgate

import (
	"sync"
	"time"
)

// CircuitState is the per-provider breaker state.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds the tunable breaker parameters.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold int `yaml:"failure_threshold"`
	// Cooldown is how long an open circuit rejects calls before probing.
	Cooldown time.Duration `yaml:"cooldown"`
}

// DefaultBreakerConfig mirrors the production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 3, Cooldown: 30 * time.Second}
}

// CircuitBreaker tracks per-provider failure state. A provider moves
// Closed→Open after N consecutive failures, Open→HalfOpen once the
// cooldown elapses, HalfOpen→Closed after one success and HalfOpen→Open
// after one failure (with the cooldown clock reset).
type CircuitBreaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu       sync.Mutex
	circuits map[string]*circuit
}

type circuit struct {
	state    CircuitState
	failures int
	openedAt time.Time
}

// NewCircuitBreaker creates a breaker with the given config. Zero values
// fall back to defaults.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	return &CircuitBreaker{
		cfg:      cfg,
		now:      time.Now,
		circuits: make(map[string]*circuit),
	}
}

// WithClock overrides the breaker's clock. Tests use this to step through
// cooldown transitions without sleeping.
func (b *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	b.now = now
	return b
}

// State returns the current circuit state for a provider, performing the
// Open→HalfOpen transition lazily once the cooldown has elapsed.
func (b *CircuitBreaker) State(provider string) CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.circuits[provider]
	if !ok {
		return CircuitClosed
	}
	if c.state == CircuitOpen && b.now().Sub(c.openedAt) >= b.cfg.Cooldown {
		c.state = CircuitHalfOpen
	}
	return c.state
}

// RecordSuccess resets the failure count and closes the circuit.
func (b *CircuitBreaker) RecordSuccess(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.getOrCreate(provider)
	c.state = CircuitClosed
	c.failures = 0
}

// RecordFailure counts one failure. A HalfOpen circuit re-opens
// immediately; a Closed circuit opens at the threshold.
func (b *CircuitBreaker) RecordFailure(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.getOrCreate(provider)
	switch c.state {
	case CircuitHalfOpen:
		c.state = CircuitOpen
		c.openedAt = b.now()
	case CircuitClosed:
		c.failures++
		if c.failures >= b.cfg.FailureThreshold {
			c.state = CircuitOpen
			c.openedAt = b.now()
		}
	}
}

func (b *CircuitBreaker) getOrCreate(provider string) *circuit {
	c, ok := b.circuits[provider]
	if !ok {
		c = &circuit{state: CircuitClosed}
		b.circuits[provider] = c
	}
	return c
}
