package interceptors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelnet/kestrel/core"
)

type recordingMetrics struct {
	core.NoOpMetrics
	retries []core.RetryMetricEvent
}

func (m *recordingMetrics) RecordRetry(e core.RetryMetricEvent) {
	m.retries = append(m.retries, e)
}

func TestRetryInterceptorRetriesThenSucceeds(t *testing.T) {
	metrics := &recordingMetrics{}
	interceptor := NewRetryInterceptor(3, time.Millisecond, metrics)

	attempts := 0
	transport := core.TransportFunc(func(_ context.Context, req core.Request) (core.Response, error) {
		attempts++
		if attempts < 3 {
			return core.NewResponse(req, 500, core.NewHeaders(), nil), nil
		}
		return core.NewResponse(req, 200, core.NewHeaders(), nil), nil
	})

	req := core.NewRequest(core.MethodGET, "https://example.com")
	chain := core.NewChain(context.Background(), []core.Interceptor{interceptor}, transport, req, nil)
	resp, err := chain.Run()
	require.NoError(t, err)

	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, 3, attempts)
	assert.Len(t, metrics.retries, 2)
}

func TestRetryInterceptorBoundsTotalInvocations(t *testing.T) {
	interceptor := NewRetryInterceptor(2, time.Millisecond, nil)

	attempts := 0
	transport := core.TransportFunc(func(_ context.Context, req core.Request) (core.Response, error) {
		attempts++
		return core.NewResponse(req, 500, core.NewHeaders(), nil), nil
	})

	req := core.NewRequest(core.MethodGET, "https://example.com")
	chain := core.NewChain(context.Background(), []core.Interceptor{interceptor}, transport, req, nil)
	resp, err := chain.Run()
	require.NoError(t, err)

	assert.Equal(t, 500, resp.Status)
	assert.Equal(t, 3, attempts, "max_attempts=2 allows at most 3 total invocations")
}

func TestRetryInterceptorZeroMaxAttemptsMeansSingleAttempt(t *testing.T) {
	interceptor := NewRetryInterceptor(0, time.Millisecond, nil)

	attempts := 0
	transport := core.TransportFunc(func(_ context.Context, req core.Request) (core.Response, error) {
		attempts++
		return core.NewResponse(req, 500, core.NewHeaders(), nil), nil
	})

	req := core.NewRequest(core.MethodGET, "https://example.com")
	chain := core.NewChain(context.Background(), []core.Interceptor{interceptor}, transport, req, nil)
	_, err := chain.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryInterceptorDoesNotRetryCancellation(t *testing.T) {
	interceptor := NewRetryInterceptor(3, time.Millisecond, nil)

	attempts := 0
	transport := core.TransportFunc(func(_ context.Context, req core.Request) (core.Response, error) {
		attempts++
		return core.Response{}, core.Cancelled()
	})

	req := core.NewRequest(core.MethodGET, "https://example.com")
	chain := core.NewChain(context.Background(), []core.Interceptor{interceptor}, transport, req, nil)
	_, err := chain.Run()
	assert.ErrorIs(t, err, core.ErrCancelled)
	assert.Equal(t, 1, attempts)
}

func TestRetryInterceptorDoesNotRetryNonRetryableStatus(t *testing.T) {
	interceptor := NewRetryInterceptor(3, time.Millisecond, nil)

	attempts := 0
	transport := core.TransportFunc(func(_ context.Context, req core.Request) (core.Response, error) {
		attempts++
		return core.NewResponse(req, 404, core.NewHeaders(), nil), nil
	})

	req := core.NewRequest(core.MethodGET, "https://example.com")
	chain := core.NewChain(context.Background(), []core.Interceptor{interceptor}, transport, req, nil)
	resp, err := chain.Run()
	require.NoError(t, err)
	assert.Equal(t, 404, resp.Status)
	assert.Equal(t, 1, attempts)
}

func TestRetryInterceptorCancelDuringBackoffSleep(t *testing.T) {
	interceptor := NewRetryInterceptor(5, 500*time.Millisecond, nil)

	attempts := 0
	transport := core.TransportFunc(func(_ context.Context, req core.Request) (core.Response, error) {
		attempts++
		return core.NewResponse(req, 500, core.NewHeaders(), nil), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	req := core.NewRequest(core.MethodGET, "https://example.com")
	chain := core.NewChain(ctx, []core.Interceptor{interceptor}, transport, req, nil)

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := chain.Run()
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, core.ErrCancelled)
	assert.Equal(t, 1, attempts)
	assert.Less(t, elapsed, 400*time.Millisecond, "cancellation during backoff sleep must interrupt it promptly")
}
