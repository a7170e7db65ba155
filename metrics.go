package solgate

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// latencyReservoirSize bounds the sample buffer for percentile estimates.
const latencyReservoirSize = 1024

// MetricsCollector is a Meter that aggregates counters, per-provider
// usage and latency percentiles for the metrics endpoint.
type MetricsCollector struct {
	eventsReceived  atomic.Int64
	eventsSucceeded atomic.Int64
	eventsFailed    atomic.Int64
	eventsDuplicate atomic.Int64
	cacheHits       atomic.Int64
	cacheMisses     atomic.Int64
	dispatchOK      atomic.Int64
	dispatchFailed  atomic.Int64

	mu        sync.Mutex
	providers map[string]*providerCounters
	latencies []time.Duration
	cursor    int
}

type providerCounters struct {
	requests int64
	failures int64
	cost     float64
}

var _ Meter = (*MetricsCollector)(nil)

// NewMetricsCollector creates an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		providers: make(map[string]*providerCounters),
		latencies: make([]time.Duration, 0, latencyReservoirSize),
	}
}

func (m *MetricsCollector) OnRoute(RouteEvent) {}

func (m *MetricsCollector) OnResult(e ResultEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pc, ok := m.providers[e.Provider]
	if !ok {
		pc = &providerCounters{}
		m.providers[e.Provider] = pc
	}
	pc.requests++
	pc.cost += e.Cost
	if !e.Success {
		pc.failures++
	}

	// Ring buffer: overwrite oldest samples once full.
	if len(m.latencies) < latencyReservoirSize {
		m.latencies = append(m.latencies, e.Duration)
	} else {
		m.latencies[m.cursor] = e.Duration
		m.cursor = (m.cursor + 1) % latencyReservoirSize
	}
}

func (m *MetricsCollector) OnCache(e CacheEvent) {
	if e.Hit {
		m.cacheHits.Add(1)
	} else {
		m.cacheMisses.Add(1)
	}
}

func (m *MetricsCollector) OnIngest(e IngestEvent) {
	m.eventsReceived.Add(1)
	switch {
	case e.Duplicate:
		m.eventsDuplicate.Add(1)
	case e.Accepted:
		m.eventsSucceeded.Add(1)
	default:
		m.eventsFailed.Add(1)
	}
}

func (m *MetricsCollector) OnDispatch(e DispatchEvent) {
	if e.Success {
		m.dispatchOK.Add(1)
	} else {
		m.dispatchFailed.Add(1)
	}
}

// ProviderMetrics is one provider's aggregate in a snapshot.
type ProviderMetrics struct {
	Requests int64   `json:"requests"`
	Failures int64   `json:"failures"`
	Cost     float64 `json:"cost"`
}

// Snapshot is the JSON document served by the metrics endpoint.
type Snapshot struct {
	EventsReceived  int64                      `json:"events_received"`
	EventsSucceeded int64                      `json:"events_succeeded"`
	EventsFailed    int64                      `json:"events_failed"`
	EventsDuplicate int64                      `json:"events_duplicate"`
	DispatchOK      int64                      `json:"dispatch_ok"`
	DispatchFailed  int64                      `json:"dispatch_failed"`
	CacheHitRate    float64                    `json:"cache_hit_rate"`
	Providers       map[string]ProviderMetrics `json:"providers"`
	LatencyP50Ms    float64                    `json:"latency_p50_ms"`
	LatencyP95Ms    float64                    `json:"latency_p95_ms"`
	LatencyP99Ms    float64                    `json:"latency_p99_ms"`
}

// SnapshotNow returns the current aggregates.
func (m *MetricsCollector) SnapshotNow() Snapshot {
	snap := Snapshot{
		EventsReceived:  m.eventsReceived.Load(),
		EventsSucceeded: m.eventsSucceeded.Load(),
		EventsFailed:    m.eventsFailed.Load(),
		EventsDuplicate: m.eventsDuplicate.Load(),
		DispatchOK:      m.dispatchOK.Load(),
		DispatchFailed:  m.dispatchFailed.Load(),
		Providers:       make(map[string]ProviderMetrics),
	}

	hits := m.cacheHits.Load()
	misses := m.cacheMisses.Load()
	if total := hits + misses; total > 0 {
		snap.CacheHitRate = float64(hits) / float64(total)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for name, pc := range m.providers {
		snap.Providers[name] = ProviderMetrics{
			Requests: pc.requests,
			Failures: pc.failures,
			Cost:     pc.cost,
		}
	}

	if len(m.latencies) > 0 {
		sorted := make([]time.Duration, len(m.latencies))
		copy(sorted, m.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		snap.LatencyP50Ms = percentileMs(sorted, 0.50)
		snap.LatencyP95Ms = percentileMs(sorted, 0.95)
		snap.LatencyP99Ms = percentileMs(sorted, 0.99)
	}
	return snap
}

func percentileMs(sorted []time.Duration, p float64) float64 {
	idx := int(p * float64(len(sorted)-1))
	return float64(sorted[idx]) / float64(time.Millisecond)
}
