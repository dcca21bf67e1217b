package interceptors

import (
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/kestrelnet/kestrel/core"
)

// RetryInterceptor re-drives the downstream chain up to MaxAttempts
// additional times on a transient failure, sleeping BaseDelay between
// attempts. Each retry re-invokes chain.Proceed against the same
// underlying chain state advanced past this interceptor, so it only
// re-runs interceptors after Retry plus the transport (spec §4.3).
type RetryInterceptor struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Metrics     core.NetworkMetrics
}

// NewRetryInterceptor builds a retry interceptor. metrics may be nil
// (defaults to core.NoOpMetrics).
func NewRetryInterceptor(maxAttempts int, baseDelay time.Duration, metrics core.NetworkMetrics) *RetryInterceptor {
	if metrics == nil {
		metrics = core.NoOpMetrics{}
	}
	return &RetryInterceptor{MaxAttempts: maxAttempts, BaseDelay: baseDelay, Metrics: metrics}
}

func (r *RetryInterceptor) Intercept(chain *core.Chain) (core.Response, error) {
	req := chain.Request()

	var lastResp core.Response
	var lastErr error

	for attempt := 0; ; attempt++ {
		resp, err := chain.Proceed(req)

		switch {
		case err != nil && core.IsCancelled(err):
			return resp, err
		case err != nil && !core.IsRetryable(err):
			return resp, err
		case err != nil:
			lastResp, lastErr = resp, err
		case core.IsRetryableStatus(resp.Status):
			lastResp, lastErr = resp, nil
		default:
			return resp, nil
		}

		if attempt >= r.MaxAttempts {
			return lastResp, lastErr
		}

		r.Metrics.RecordRetry(core.RetryMetricEvent{
			Method:        req.Method,
			URL:           req.URL,
			AttemptNumber: attempt + 1,
			Reason:        retryReason(lastResp, lastErr),
		})

		delay := backoff.NewConstantBackOff(r.BaseDelay).NextBackOff()
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-chain.Context().Done():
			timer.Stop()
			return core.Response{}, core.Cancelled()
		}
	}
}

func retryReason(resp core.Response, err error) string {
	if err != nil {
		return "transport_error"
	}
	switch resp.Status {
	case 408:
		return "request_timeout"
	case 429:
		return "rate_limited"
	default:
		return "server_error"
	}
}
