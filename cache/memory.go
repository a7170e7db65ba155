// Package cache provides the in-memory tiered cache. Multi-instance
// deployments use the nested redis module instead.
package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/solgate-dev/solgate"
)

// Memory is an in-memory tiered cache with lazy expiry, a periodic sweep
// and LRU eviction under capacity pressure. Entries are never mutated,
// only replaced or evicted.
type Memory struct {
	ttls     solgate.TierTTLs
	capacity int
	now      func() time.Time

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front = most recently used
}

type entry struct {
	key      string
	value    json.RawMessage
	expiresAt time.Time
}

var _ solgate.Cache = (*Memory)(nil)

// Option configures a Memory cache.
type Option func(*Memory)

// WithCapacity bounds the number of entries; zero means 4096.
func WithCapacity(n int) Option {
	return func(m *Memory) { m.capacity = n }
}

// WithClock overrides the cache clock for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// WithSweep starts a background sweep of expired entries at the given
// interval, stopping when ctx is cancelled.
func WithSweep(ctx context.Context, interval time.Duration) Option {
	return func(m *Memory) { go m.sweep(ctx, interval) }
}

// NewMemory creates a cache with the given tier TTLs.
func NewMemory(ttls solgate.TierTTLs, opts ...Option) *Memory {
	m := &Memory{
		ttls:     ttls,
		capacity: 4096,
		now:      time.Now,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCompute returns the cached value within TTL, or computes and
// stores a fresh one. The compute path runs outside the lock, so two
// concurrent misses for the same key may both compute.
func (m *Memory) GetOrCompute(ctx context.Context, key string, tier solgate.VolatilityTier, compute solgate.ComputeFunc) (json.RawMessage, bool, error) {
	if v, ok := m.get(key); ok {
		return v, true, nil
	}

	v, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}
	m.set(key, v, m.ttls.For(tier))
	return v, false, nil
}

// Len returns the current number of live entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory) get(key string) (json.RawMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if m.now().After(e.expiresAt) {
		m.remove(el)
		return nil, false
	}
	m.order.MoveToFront(el)
	return e.value, true
}

func (m *Memory) set(key string, value json.RawMessage, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		m.remove(el)
	}
	for m.capacity > 0 && len(m.items) >= m.capacity {
		if oldest := m.order.Back(); oldest != nil {
			m.remove(oldest)
		}
	}
	e := &entry{key: key, value: value, expiresAt: m.now().Add(ttl)}
	m.items[key] = m.order.PushFront(e)
}

// remove must be called with the lock held.
func (m *Memory) remove(el *list.Element) {
	e := el.Value.(*entry)
	m.order.Remove(el)
	delete(m.items, e.key)
}

func (m *Memory) sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			now := m.now()
			for _, el := range m.items {
				if now.After(el.Value.(*entry).expiresAt) {
					m.remove(el)
				}
			}
			m.mu.Unlock()
		}
	}
}
