package solgate

import "time"

// Meter observes gateway and ingestion events for monitoring/logging.
type Meter interface {
	// OnRoute is called when a provider is selected for a call.
	OnRoute(event RouteEvent)

	// OnResult is called when a provider call completes.
	OnResult(event ResultEvent)

	// OnCache is called for every cache lookup.
	OnCache(event CacheEvent)

	// OnIngest is called once per inbound webhook event, and once for a
	// request rejected before its events could be decoded.
	OnIngest(event IngestEvent)

	// OnDispatch is called once per downstream target per dispatch.
	OnDispatch(event DispatchEvent)
}

// RouteEvent describes a routing decision.
type RouteEvent struct {
	Provider string
	Method   string
	Attempt  int
	Policy   string
}

// ResultEvent describes the outcome of a provider call.
type ResultEvent struct {
	Provider string
	Method   string
	Success  bool
	Degraded bool
	Duration time.Duration
	Cost     float64
	Error    error
}

// CacheEvent describes one cache lookup.
type CacheEvent struct {
	Key  string
	Tier VolatilityTier
	Hit  bool
}

// IngestEvent describes one ingested webhook event, or one rejected
// request.
type IngestEvent struct {
	Source    string
	Accepted  bool
	Duplicate bool
	Duration  time.Duration
	Error     error
}

// DispatchEvent describes delivery to one downstream target.
type DispatchEvent struct {
	Target   string
	EventID  string
	Success  bool
	Duration time.Duration
	Error    error
}

// NoopMeter discards all events.
type NoopMeter struct{}

var _ Meter = NoopMeter{}

func (NoopMeter) OnRoute(RouteEvent)       {}
func (NoopMeter) OnResult(ResultEvent)     {}
func (NoopMeter) OnCache(CacheEvent)       {}
func (NoopMeter) OnIngest(IngestEvent)     {}
func (NoopMeter) OnDispatch(DispatchEvent) {}
