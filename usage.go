package solgate

import "context"

// QuotaResetMode selects how usage counters roll over.
type QuotaResetMode string

const (
	// ResetCalendar resets counters at the UTC calendar month boundary.
	ResetCalendar QuotaResetMode = "calendar"
	// ResetRolling expires usage older than 30 days.
	ResetRolling QuotaResetMode = "rolling"
)

// UsageTracker accounts per-provider monthly request counts and cost.
// Implementations must make the over-quota check-then-increment atomic
// per provider.
type UsageTracker interface {
	// Record counts one charged call against the provider. It fails
	// closed with ErrOverQuota when the increment would exceed the
	// monthly limit; callers treat that as a routing exclusion, not a
	// hard error.
	Record(ctx context.Context, provider string, cost float64) error

	// OverQuota reports whether the provider has no remaining quota.
	OverQuota(ctx context.Context, provider string) bool

	// Remaining returns the provider's remaining request quota.
	Remaining(ctx context.Context, provider string) int64

	// Snapshot returns per-provider usage for metrics reporting.
	Snapshot(ctx context.Context) map[string]ProviderUsage
}

// ProviderUsage is one provider's accumulated usage.
type ProviderUsage struct {
	Requests int64   `json:"requests"`
	Cost     float64 `json:"cost"`
	Limit    int64   `json:"limit"`
}
