package ingest

import (
	"sync"
	"time"
)

// Dedup remembers transaction signatures for a fixed window so webhook
// retries and duplicate deliveries are absorbed idempotently.
type Dedup struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewDedup creates a dedup store with the given suppression window.
func NewDedup(window time.Duration) *Dedup {
	return &Dedup{
		window: window,
		now:    time.Now,
		seen:   make(map[string]time.Time),
	}
}

// WithClock overrides the store's time source.
func (d *Dedup) WithClock(now func() time.Time) *Dedup {
	d.now = now
	return d
}

// Seen reports whether sig was already recorded inside the window, and
// records it if not. First sight wins; the window is not extended by
// replays.
func (d *Dedup) Seen(sig string) bool {
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if at, ok := d.seen[sig]; ok && now.Sub(at) < d.window {
		return true
	}
	d.seen[sig] = now
	return false
}

// Prune drops signatures older than the window.
func (d *Dedup) Prune() {
	cutoff := d.now().Add(-d.window)

	d.mu.Lock()
	defer d.mu.Unlock()

	for sig, at := range d.seen {
		if at.Before(cutoff) {
			delete(d.seen, sig)
		}
	}
}
