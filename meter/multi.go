package meter

import "github.com/solgate-dev/solgate"

// Multi fans events out to several meters, e.g. a LogMeter plus the
// MetricsCollector behind the metrics endpoint.
type Multi []solgate.Meter

var _ solgate.Meter = (Multi)(nil)

func (ms Multi) OnRoute(e solgate.RouteEvent) {
	for _, m := range ms {
		m.OnRoute(e)
	}
}

func (ms Multi) OnResult(e solgate.ResultEvent) {
	for _, m := range ms {
		m.OnResult(e)
	}
}

func (ms Multi) OnCache(e solgate.CacheEvent) {
	for _, m := range ms {
		m.OnCache(e)
	}
}

func (ms Multi) OnIngest(e solgate.IngestEvent) {
	for _, m := range ms {
		m.OnIngest(e)
	}
}

func (ms Multi) OnDispatch(e solgate.DispatchEvent) {
	for _, m := range ms {
		m.OnDispatch(e)
	}
}
