// Package meter provides Meter implementations for the gateway.
package meter

import (
	"log/slog"

	"github.com/solgate-dev/solgate"
)

// LogMeter logs gateway events using slog.
type LogMeter struct {
	Logger *slog.Logger
}

var _ solgate.Meter = (*LogMeter)(nil)

// NewLogMeter creates a LogMeter with the given logger.
// If logger is nil, slog.Default() is used.
func NewLogMeter(logger *slog.Logger) *LogMeter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMeter{Logger: logger}
}

func (m *LogMeter) OnRoute(e solgate.RouteEvent) {
	m.Logger.Info("route",
		"provider", e.Provider,
		"method", e.Method,
		"attempt", e.Attempt,
		"policy", e.Policy,
	)
}

func (m *LogMeter) OnResult(e solgate.ResultEvent) {
	if e.Success {
		m.Logger.Info("result",
			"provider", e.Provider,
			"method", e.Method,
			"degraded", e.Degraded,
			"duration_ms", e.Duration.Milliseconds(),
			"cost", e.Cost,
		)
	} else {
		m.Logger.Warn("result_error",
			"provider", e.Provider,
			"method", e.Method,
			"duration_ms", e.Duration.Milliseconds(),
			"error", e.Error,
		)
	}
}

func (m *LogMeter) OnCache(e solgate.CacheEvent) {
	m.Logger.Debug("cache",
		"key", e.Key,
		"tier", e.Tier,
		"hit", e.Hit,
	)
}

func (m *LogMeter) OnIngest(e solgate.IngestEvent) {
	if e.Error != nil {
		m.Logger.Warn("ingest_error",
			"source", e.Source,
			"duration_ms", e.Duration.Milliseconds(),
			"error", e.Error,
		)
		return
	}
	m.Logger.Info("ingest",
		"source", e.Source,
		"accepted", e.Accepted,
		"duplicate", e.Duplicate,
		"duration_ms", e.Duration.Milliseconds(),
	)
}

func (m *LogMeter) OnDispatch(e solgate.DispatchEvent) {
	if e.Success {
		m.Logger.Info("dispatch",
			"target", e.Target,
			"event_id", e.EventID,
			"duration_ms", e.Duration.Milliseconds(),
		)
	} else {
		m.Logger.Warn("dispatch_error",
			"target", e.Target,
			"event_id", e.EventID,
			"duration_ms", e.Duration.Milliseconds(),
			"error", e.Error,
		)
	}
}
