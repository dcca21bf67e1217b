package interceptors

import (
	"context"
	"time"

	"github.com/kestrelnet/kestrel/core"
)

// TimeoutInterceptor races the downstream Proceed against a timer; on
// timer expiry the downstream work's context is cancelled and the
// interceptor yields core.Transport(context.DeadlineExceeded). A
// cancellation observed on the outer context always surfaces as
// core.Cancelled(), never as a timeout (spec §5).
type TimeoutInterceptor struct {
	Default time.Duration
}

// NewTimeoutInterceptor builds a timeout interceptor with a fallback
// duration used when the request carries no per-request override.
func NewTimeoutInterceptor(def time.Duration) *TimeoutInterceptor {
	return &TimeoutInterceptor{Default: def}
}

func (t *TimeoutInterceptor) Intercept(chain *core.Chain) (core.Response, error) {
	req := chain.Request()

	d := t.Default
	if req.HasTimeout {
		d = time.Duration(req.TimeoutSecs * float64(time.Second))
	}
	if d <= 0 {
		return chain.Proceed(req)
	}

	ctx, cancel := context.WithTimeout(chain.Context(), d)
	defer cancel()
	timed := chain.WithContext(ctx)

	type result struct {
		resp core.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := timed.Proceed(req)
		done <- result{resp, err}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		if chain.Context().Err() != nil {
			return core.Response{}, core.Cancelled()
		}
		return core.Response{}, core.Transport(ctx.Err())
	}
}
