package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelnet/kestrel/core"
)

func runCacheChain(t *testing.T, interceptor *Interceptor, transport core.Transport, req core.Request) core.Response {
	t.Helper()
	chain := core.NewChain(context.Background(), []core.Interceptor{interceptor}, transport, req, nil)
	resp, err := chain.Run()
	require.NoError(t, err)
	return resp
}

func TestCacheInterceptorHitSkipsTransport(t *testing.T) {
	storage := NewMemoryStorage(time.Minute)
	interceptor := NewInterceptor(storage, nil)

	req := core.NewRequest(core.MethodGET, "https://example.com")
	entry := BuildEntry(core.NewResponse(req, 200, core.NewHeaders(), []byte("cached")), time.Now())
	require.NoError(t, storage.Store(entry))

	calls := 0
	transport := core.TransportFunc(func(_ context.Context, r core.Request) (core.Response, error) {
		calls++
		return core.NewResponse(r, 200, core.NewHeaders(), []byte("fresh")), nil
	})

	resp := runCacheChain(t, interceptor, transport, req)
	assert.Equal(t, 0, calls, "a cache hit must not invoke the transport")
	assert.Equal(t, []byte("cached"), resp.Body)
}

func TestCacheInterceptorMissFetchesAndStores(t *testing.T) {
	storage := NewMemoryStorage(time.Minute)
	interceptor := NewInterceptor(storage, nil)
	req := core.NewRequest(core.MethodGET, "https://example.com")

	calls := 0
	transport := core.TransportFunc(func(_ context.Context, r core.Request) (core.Response, error) {
		calls++
		return core.NewResponse(r, 200, core.NewHeaders(), []byte("fresh")), nil
	})

	resp := runCacheChain(t, interceptor, transport, req)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []byte("fresh"), resp.Body)

	cached, ok := storage.CachedResponse(req)
	require.True(t, ok)
	assert.Equal(t, []byte("fresh"), cached.Body)
}

func TestCacheInterceptorIgnoreCachePolicyAlwaysFetches(t *testing.T) {
	storage := NewMemoryStorage(time.Minute)
	interceptor := NewInterceptor(storage, nil)
	req := core.NewRequest(core.MethodGET, "https://example.com").WithCachePolicy(core.IgnoreCache)
	entry := BuildEntry(core.NewResponse(req, 200, core.NewHeaders(), []byte("stale")), time.Now())
	require.NoError(t, storage.Store(entry))

	calls := 0
	transport := core.TransportFunc(func(_ context.Context, r core.Request) (core.Response, error) {
		calls++
		return core.NewResponse(r, 200, core.NewHeaders(), []byte("fresh")), nil
	})

	resp := runCacheChain(t, interceptor, transport, req)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []byte("fresh"), resp.Body)
}

func TestCacheInterceptorRevalidationOn304KeepsCachedBody(t *testing.T) {
	storage := NewMemoryStorage(time.Minute)
	interceptor := NewInterceptor(storage, nil)
	req := core.NewRequest(core.MethodGET, "https://example.com").WithCachePolicy(core.Revalidate)

	etagged := core.NewHeaders()
	etagged.Set("ETag", `"v1"`)
	entry := BuildEntry(core.NewResponse(req, 200, etagged, []byte("original")), time.Now())
	require.NoError(t, storage.Store(entry))

	var sawConditional string
	transport := core.TransportFunc(func(_ context.Context, r core.Request) (core.Response, error) {
		sawConditional, _ = r.Headers.Get("If-None-Match")
		return core.NewResponseNoBody(r, 304, core.NewHeaders()), nil
	})

	resp := runCacheChain(t, interceptor, transport, req)
	assert.Equal(t, `"v1"`, sawConditional)
	assert.Equal(t, []byte("original"), resp.Body)
}

func TestCacheInterceptorNonCacheableMethodPassesThrough(t *testing.T) {
	storage := NewMemoryStorage(time.Minute)
	interceptor := NewInterceptor(storage, nil)
	req := core.NewRequest(core.MethodPOST, "https://example.com")

	calls := 0
	transport := core.TransportFunc(func(_ context.Context, r core.Request) (core.Response, error) {
		calls++
		return core.NewResponse(r, 200, core.NewHeaders(), nil), nil
	})

	runCacheChain(t, interceptor, transport, req)
	assert.Equal(t, 1, calls)
}
