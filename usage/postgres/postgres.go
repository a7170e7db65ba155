// Package postgres provides a PostgreSQL-backed UsageTracker.
//
// Usage state lives in a single table with atomic check-then-increment
// updates, so multiple gateway instances can share one billing ledger
// without overspending a provider's quota.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solgate-dev/solgate"
)

// Tracker is a PostgreSQL-backed UsageTracker.
type Tracker struct {
	pool        *pgxpool.Pool
	tablePrefix string
	mode        solgate.QuotaResetMode
	now         func() time.Time
}

var _ solgate.UsageTracker = (*Tracker)(nil)

// Option configures Tracker.
type Option func(*Tracker)

// WithTablePrefix sets the table name prefix (default "solgate_").
func WithTablePrefix(prefix string) Option {
	return func(t *Tracker) { t.tablePrefix = prefix }
}

// WithResetMode selects calendar or rolling quota resets (default
// calendar).
func WithResetMode(mode solgate.QuotaResetMode) Option {
	return func(t *Tracker) { t.mode = mode }
}

// WithClock overrides the tracker's time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New creates a PostgreSQL-backed UsageTracker.
func New(pool *pgxpool.Pool, opts ...Option) *Tracker {
	t := &Tracker{
		pool:        pool,
		tablePrefix: "solgate_",
		mode:        solgate.ResetCalendar,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) usageTable() string { return t.tablePrefix + "usage" }

// EnsureSchema creates the usage table if it does not exist.
func (t *Tracker) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			provider TEXT PRIMARY KEY,
			monthly_limit BIGINT NOT NULL,
			requests BIGINT NOT NULL DEFAULT 0,
			cost DOUBLE PRECISION NOT NULL DEFAULT 0,
			reset_at TIMESTAMPTZ NOT NULL
		);
	`, t.usageTable())
	if _, err := t.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("solgate/postgres: ensure schema: %w", err)
	}
	return nil
}

// SetQuota configures the monthly request limit for a provider (upsert).
// An existing row keeps its accumulated usage and reset deadline.
func (t *Tracker) SetQuota(ctx context.Context, provider string, monthlyLimit int64) error {
	_, err := t.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (provider, monthly_limit, reset_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (provider) DO UPDATE SET monthly_limit = $2`,
			t.usageTable()),
		provider, monthlyLimit, t.nextReset(),
	)
	if err != nil {
		return fmt.Errorf("solgate/postgres: set quota: %w", err)
	}
	return nil
}

// Record counts one charged call against the provider. The reset and the
// check-then-increment both run inside one transaction so concurrent
// gateway instances cannot jointly exceed the limit.
func (t *Tracker) Record(ctx context.Context, provider string, cost float64) error {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("solgate/postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := t.now().UTC()

	// Lazy billing rollover.
	_, err = tx.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET requests = 0, cost = 0, reset_at = $1
			WHERE provider = $2 AND reset_at <= $3`, t.usageTable()),
		t.nextReset(), provider, now,
	)
	if err != nil {
		return fmt.Errorf("solgate/postgres: rollover: %w", err)
	}

	var updated bool
	err = tx.QueryRow(ctx,
		fmt.Sprintf(`UPDATE %s SET requests = requests + 1, cost = cost + $1
			WHERE provider = $2 AND (monthly_limit <= 0 OR requests < monthly_limit)
			RETURNING true`, t.usageTable()),
		cost, provider,
	).Scan(&updated)

	if err == pgx.ErrNoRows {
		var exists bool
		err = tx.QueryRow(ctx,
			fmt.Sprintf(`SELECT true FROM %s WHERE provider = $1`, t.usageTable()),
			provider,
		).Scan(&exists)
		if err == pgx.ErrNoRows {
			// Unconfigured providers are unlimited.
			return tx.Commit(ctx)
		}
		if err != nil {
			return fmt.Errorf("solgate/postgres: check exists: %w", err)
		}
		return solgate.ErrOverQuota
	}
	if err != nil {
		return fmt.Errorf("solgate/postgres: record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("solgate/postgres: commit: %w", err)
	}
	return nil
}

// OverQuota reports whether the provider has exhausted its limit. Storage
// errors read as not-over-quota so a database blip does not take every
// provider out of rotation; Record still fails closed.
func (t *Tracker) OverQuota(ctx context.Context, provider string) bool {
	limit, requests, _, resetAt, err := t.readRow(ctx, provider)
	if err != nil {
		return false
	}
	if !t.now().UTC().Before(resetAt) {
		return false
	}
	return limit > 0 && requests >= limit
}

// Remaining returns the provider's remaining request quota.
func (t *Tracker) Remaining(ctx context.Context, provider string) int64 {
	limit, requests, _, resetAt, err := t.readRow(ctx, provider)
	if err != nil || limit <= 0 {
		return 0
	}
	if !t.now().UTC().Before(resetAt) {
		return limit
	}
	if rem := limit - requests; rem > 0 {
		return rem
	}
	return 0
}

// Snapshot returns per-provider usage for metrics reporting.
func (t *Tracker) Snapshot(ctx context.Context) map[string]solgate.ProviderUsage {
	out := make(map[string]solgate.ProviderUsage)

	rows, err := t.pool.Query(ctx,
		fmt.Sprintf(`SELECT provider, monthly_limit, requests, cost, reset_at FROM %s`,
			t.usageTable()),
	)
	if err != nil {
		return out
	}
	defer rows.Close()

	now := t.now().UTC()
	for rows.Next() {
		var (
			provider string
			u        solgate.ProviderUsage
			resetAt  time.Time
		)
		if err := rows.Scan(&provider, &u.Limit, &u.Requests, &u.Cost, &resetAt); err != nil {
			continue
		}
		if !now.Before(resetAt) {
			u.Requests = 0
			u.Cost = 0
		}
		out[provider] = u
	}
	return out
}

func (t *Tracker) readRow(ctx context.Context, provider string) (limit, requests int64, cost float64, resetAt time.Time, err error) {
	err = t.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT monthly_limit, requests, cost, reset_at FROM %s WHERE provider = $1`,
			t.usageTable()),
		provider,
	).Scan(&limit, &requests, &cost, &resetAt)
	return
}

func (t *Tracker) nextReset() time.Time {
	now := t.now().UTC()
	if t.mode == solgate.ResetRolling {
		return now.Add(30 * 24 * time.Hour)
	}
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
