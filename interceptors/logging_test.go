package interceptors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelnet/kestrel/core"
)

type recordingLogger struct {
	core.NoOpLogger
	infos, warns, errors []map[string]interface{}
}

func (r *recordingLogger) Info(msg string, fields map[string]interface{}) {
	r.infos = append(r.infos, fields)
}
func (r *recordingLogger) Warn(msg string, fields map[string]interface{}) {
	r.warns = append(r.warns, fields)
}
func (r *recordingLogger) Error(msg string, fields map[string]interface{}) {
	r.errors = append(r.errors, fields)
}

func TestLoggingInterceptorGeneratesRequestIDWhenAbsent(t *testing.T) {
	logger := &recordingLogger{}
	interceptor := NewLoggingInterceptor(logger, 0)

	var seenID string
	transport := core.TransportFunc(func(_ context.Context, req core.Request) (core.Response, error) {
		seenID, _ = req.Headers.Get("X-Request-ID")
		return core.NewResponse(req, 200, core.NewHeaders(), nil), nil
	})

	req := core.NewRequest(core.MethodGET, "https://example.com")
	chain := core.NewChain(context.Background(), []core.Interceptor{interceptor}, transport, req, nil)
	_, err := chain.Run()
	require.NoError(t, err)

	assert.NotEmpty(t, seenID)
	require.Len(t, logger.infos, 1)
	assert.Equal(t, seenID, logger.infos[0]["request_id"])
}

func TestLoggingInterceptorPreservesExistingRequestID(t *testing.T) {
	logger := &recordingLogger{}
	interceptor := NewLoggingInterceptor(logger, 0)

	transport := core.TransportFunc(func(_ context.Context, req core.Request) (core.Response, error) {
		return core.NewResponse(req, 200, core.NewHeaders(), nil), nil
	})

	req := core.NewRequest(core.MethodGET, "https://example.com").WithHeader("X-Request-ID", "fixed-id")
	chain := core.NewChain(context.Background(), []core.Interceptor{interceptor}, transport, req, nil)
	_, err := chain.Run()
	require.NoError(t, err)

	assert.Equal(t, "fixed-id", logger.infos[0]["request_id"])
}

func TestLoggingInterceptorWarnsOnErrorStatus(t *testing.T) {
	logger := &recordingLogger{}
	interceptor := NewLoggingInterceptor(logger, 0)

	transport := core.TransportFunc(func(_ context.Context, req core.Request) (core.Response, error) {
		return core.NewResponse(req, 500, core.NewHeaders(), nil), nil
	})

	req := core.NewRequest(core.MethodGET, "https://example.com")
	chain := core.NewChain(context.Background(), []core.Interceptor{interceptor}, transport, req, nil)
	_, err := chain.Run()
	require.NoError(t, err)

	assert.Len(t, logger.warns, 1)
	assert.Empty(t, logger.infos)
}

func TestLoggingInterceptorWarnsOnSlowRequest(t *testing.T) {
	logger := &recordingLogger{}
	interceptor := NewLoggingInterceptor(logger, 5*time.Millisecond)

	transport := core.TransportFunc(func(_ context.Context, req core.Request) (core.Response, error) {
		time.Sleep(15 * time.Millisecond)
		return core.NewResponse(req, 200, core.NewHeaders(), nil), nil
	})

	req := core.NewRequest(core.MethodGET, "https://example.com")
	chain := core.NewChain(context.Background(), []core.Interceptor{interceptor}, transport, req, nil)
	_, err := chain.Run()
	require.NoError(t, err)

	assert.Len(t, logger.warns, 1)
}

func TestLoggingInterceptorLogsErrorOnTransportFailure(t *testing.T) {
	logger := &recordingLogger{}
	interceptor := NewLoggingInterceptor(logger, 0)

	transport := core.TransportFunc(func(_ context.Context, req core.Request) (core.Response, error) {
		return core.Response{}, core.Transport(assert.AnError)
	})

	req := core.NewRequest(core.MethodGET, "https://example.com")
	chain := core.NewChain(context.Background(), []core.Interceptor{interceptor}, transport, req, nil)
	_, err := chain.Run()
	require.Error(t, err)

	assert.Len(t, logger.errors, 1)
}
