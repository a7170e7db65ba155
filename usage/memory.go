// Package usage provides the in-memory UsageTracker. Durable deployments
// use the nested postgres module instead.
package usage

import (
	"context"
	"sync"
	"time"

	"github.com/solgate-dev/solgate"
)

// MemoryTracker is an in-memory UsageTracker. Counters reset at the UTC
// month boundary (or on a rolling 30-day window) and the reset is applied
// lazily on the next call, so a process restarted across a boundary
// settles itself before evaluating usage.
type MemoryTracker struct {
	mode solgate.QuotaResetMode
	now  func() time.Time

	mu       sync.Mutex
	accounts map[string]*providerUsage
}

type providerUsage struct {
	limit    int64
	requests int64
	cost     float64
	resetAt  time.Time
}

var _ solgate.UsageTracker = (*MemoryTracker)(nil)

// NewMemoryTracker creates a tracker with the given reset mode.
func NewMemoryTracker(mode solgate.QuotaResetMode) *MemoryTracker {
	if mode == "" {
		mode = solgate.ResetCalendar
	}
	return &MemoryTracker{
		mode:     mode,
		now:      time.Now,
		accounts: make(map[string]*providerUsage),
	}
}

// WithClock overrides the tracker's clock for tests.
func (t *MemoryTracker) WithClock(now func() time.Time) *MemoryTracker {
	t.now = now
	return t
}

// SetQuota configures the monthly request limit for a provider.
func (t *MemoryTracker) SetQuota(provider string, monthlyLimit int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.accounts[provider] = &providerUsage{
		limit:   monthlyLimit,
		resetAt: t.nextReset(),
	}
}

// Record counts one charged call. The check and increment happen under
// one lock so two concurrent calls cannot both pass a quota check that
// only one should pass.
func (t *MemoryTracker) Record(_ context.Context, provider string, cost float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, ok := t.accounts[provider]
	if !ok {
		// Unconfigured providers are unlimited.
		return nil
	}
	t.maybeReset(u)

	if u.limit > 0 && u.requests+1 > u.limit {
		return solgate.ErrOverQuota
	}
	u.requests++
	u.cost += cost
	return nil
}

// OverQuota reports whether the provider has exhausted its monthly limit.
func (t *MemoryTracker) OverQuota(_ context.Context, provider string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, ok := t.accounts[provider]
	if !ok {
		return false
	}
	t.maybeReset(u)
	return u.limit > 0 && u.requests >= u.limit
}

// Remaining returns the remaining request quota for a provider.
func (t *MemoryTracker) Remaining(_ context.Context, provider string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, ok := t.accounts[provider]
	if !ok {
		return 0
	}
	t.maybeReset(u)
	if u.limit <= 0 {
		return 0
	}
	if rem := u.limit - u.requests; rem > 0 {
		return rem
	}
	return 0
}

// Snapshot returns per-provider usage for metrics reporting.
func (t *MemoryTracker) Snapshot(_ context.Context) map[string]solgate.ProviderUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]solgate.ProviderUsage, len(t.accounts))
	for name, u := range t.accounts {
		t.maybeReset(u)
		out[name] = solgate.ProviderUsage{
			Requests: u.requests,
			Cost:     u.cost,
			Limit:    u.limit,
		}
	}
	return out
}

// maybeReset applies a pending billing rollover. Must be called with the
// lock held. Idempotent: a second call in the same period is a no-op.
func (t *MemoryTracker) maybeReset(u *providerUsage) {
	if t.now().Before(u.resetAt) {
		return
	}
	u.requests = 0
	u.cost = 0
	u.resetAt = t.nextReset()
}

func (t *MemoryTracker) nextReset() time.Time {
	now := t.now().UTC()
	if t.mode == solgate.ResetRolling {
		return now.Add(30 * 24 * time.Hour)
	}
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
