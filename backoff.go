package solgate

import (
	"math/rand"
	"time"
)

// RetryConfig holds the tunable retry parameters for one provider.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int `yaml:"max_retries"`
	// BaseDelay is the first backoff delay; each retry doubles it.
	BaseDelay time.Duration `yaml:"base_delay"`
	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration `yaml:"max_delay"`
	// CallTimeout bounds each individual provider call.
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// DefaultRetryConfig mirrors the production defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		CallTimeout: 10 * time.Second,
	}
}

// backoff is an explicit retry state machine: attempt count in, next
// delay out, no hidden sleeps. The executor owns the waiting, which keeps
// the schedule unit-testable without real time.
type backoff struct {
	cfg     RetryConfig
	attempt int
}

func newBackoff(cfg RetryConfig) *backoff {
	return &backoff{cfg: cfg}
}

// more reports whether another retry is allowed.
func (b *backoff) more() bool {
	return b.attempt < b.cfg.MaxRetries
}

// next advances the state machine and returns the delay to wait before
// the following attempt, exponential with ±25% jitter and capped at
// MaxDelay.
func (b *backoff) next() time.Duration {
	delay := b.cfg.BaseDelay << b.attempt
	if delay > b.cfg.MaxDelay || delay <= 0 {
		delay = b.cfg.MaxDelay
	}
	b.attempt++

	jitter := time.Duration(rand.Int63n(int64(delay)/2+1)) - delay/4
	if d := delay + jitter; d > 0 {
		return d
	}
	return delay
}
