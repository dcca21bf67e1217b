// Package metrics provides the built-in NetworkMetrics collectors:
// a logging collector, an OTel-backed collector, and a concurrent
// fan-out collector (spec §6, SPEC_FULL §6).
package metrics

import "github.com/kestrelnet/kestrel/core"

// LoggingCollector logs every metric event through a core.Logger. It is
// the simplest non-no-op collector, useful in development or when no
// metrics backend is wired up.
type LoggingCollector struct {
	Logger core.Logger
}

// NewLoggingCollector builds a collector over logger.
func NewLoggingCollector(logger core.Logger) *LoggingCollector {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &LoggingCollector{Logger: logger}
}

func (c *LoggingCollector) RecordRequest(e core.RequestMetricEvent) {
	c.Logger.Debug("request", map[string]interface{}{
		"method":      e.Method.String(),
		"url":         e.URL,
		"status":      e.Status,
		"duration_ms": e.DurationMS,
	})
}

func (c *LoggingCollector) RecordError(e core.ErrorMetricEvent) {
	c.Logger.Warn("request error", map[string]interface{}{
		"method": e.Method.String(),
		"url":    e.URL,
		"kind":   string(e.Kind),
	})
}

func (c *LoggingCollector) RecordRetry(e core.RetryMetricEvent) {
	c.Logger.Debug("retry", map[string]interface{}{
		"method":  e.Method.String(),
		"url":     e.URL,
		"attempt": e.AttemptNumber,
		"reason":  e.Reason,
	})
}

func (c *LoggingCollector) RecordCacheHit(e core.CacheMetricEvent) {
	c.Logger.Debug("cache", map[string]interface{}{
		"url":    e.URL,
		"result": string(e.Result),
	})
}

// MultiCollector fans out every event to N collectors concurrently, one
// goroutine per collector, so a slow sink cannot block request progress
// (spec §5: "forwarding collectors fan out concurrently").
type MultiCollector struct {
	Collectors []core.NetworkMetrics
}

// NewMultiCollector builds a fan-out collector over collectors.
func NewMultiCollector(collectors ...core.NetworkMetrics) *MultiCollector {
	return &MultiCollector{Collectors: collectors}
}

func (m *MultiCollector) RecordRequest(e core.RequestMetricEvent) {
	for _, c := range m.Collectors {
		go c.RecordRequest(e)
	}
}

func (m *MultiCollector) RecordError(e core.ErrorMetricEvent) {
	for _, c := range m.Collectors {
		go c.RecordError(e)
	}
}

func (m *MultiCollector) RecordRetry(e core.RetryMetricEvent) {
	for _, c := range m.Collectors {
		go c.RecordRetry(e)
	}
}

func (m *MultiCollector) RecordCacheHit(e core.CacheMetricEvent) {
	for _, c := range m.Collectors {
		go c.RecordCacheHit(e)
	}
}
