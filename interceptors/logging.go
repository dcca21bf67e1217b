// Package interceptors provides the built-in cross-cutting interceptors
// attached to the chain: logging, default headers, timeout, and retry
// (spec §2, §4.3, §5).
package interceptors

import (
	"time"

	"github.com/google/uuid"

	"github.com/kestrelnet/kestrel/core"
)

// LoggingInterceptor logs the outcome of every request at Info (success)
// or Warn/Error (failure) level, with a slow-request threshold bumping
// otherwise-successful calls to Warn.
type LoggingInterceptor struct {
	Logger         core.Logger
	SlowThreshold  time.Duration
}

// NewLoggingInterceptor builds a logging interceptor. slowThreshold <= 0
// disables the slow-request bump.
func NewLoggingInterceptor(logger core.Logger, slowThreshold time.Duration) *LoggingInterceptor {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &LoggingInterceptor{Logger: logger, SlowThreshold: slowThreshold}
}

func (l *LoggingInterceptor) Intercept(chain *core.Chain) (core.Response, error) {
	req := chain.Request()
	if !req.Headers.Has("X-Request-ID") {
		req = req.WithHeader("X-Request-ID", uuid.NewString())
	}

	start := time.Now()
	resp, err := chain.Proceed(req)
	elapsed := time.Since(start)

	reqID, _ := req.Headers.Get("X-Request-ID")
	fields := map[string]interface{}{
		"method":       req.Method.String(),
		"url":          req.URL,
		"duration_ms":  elapsed.Milliseconds(),
		"request_id":   reqID,
	}

	if err != nil {
		fields["error"] = err.Error()
		l.Logger.Error("request failed", fields)
		return resp, err
	}

	fields["status"] = resp.Status
	switch {
	case !resp.IsSuccessful():
		l.Logger.Warn("request completed with error status", fields)
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold:
		l.Logger.Warn("slow request", fields)
	default:
		l.Logger.Info("request completed", fields)
	}
	return resp, nil
}
