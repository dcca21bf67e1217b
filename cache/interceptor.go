package cache

import (
	"time"

	"github.com/kestrelnet/kestrel/core"
)

// Interceptor implements the cache lookup/store policy table from spec
// §4.4. Only GET requests are cacheable; everything else passes
// through untouched.
type Interceptor struct {
	Storage core.CacheStorage
	Metrics core.NetworkMetrics
}

// NewInterceptor builds a cache interceptor over storage, emitting
// events through metrics (core.NoOpMetrics if nil).
func NewInterceptor(storage core.CacheStorage, metrics core.NetworkMetrics) *Interceptor {
	if metrics == nil {
		metrics = core.NoOpMetrics{}
	}
	return &Interceptor{Storage: storage, Metrics: metrics}
}

func (i *Interceptor) Intercept(chain *core.Chain) (core.Response, error) {
	req := chain.Request()
	if !req.IsCacheable() {
		return chain.Proceed(req)
	}

	switch req.CachePolicy {
	case core.UseCache:
		return i.useCache(chain, req)
	case core.IgnoreCache:
		return i.ignoreCache(chain, req)
	case core.Revalidate:
		return i.revalidate(chain, req)
	case core.RespectHeaders:
		return i.respectHeaders(chain, req)
	default:
		return i.useCache(chain, req)
	}
}

func (i *Interceptor) useCache(chain *core.Chain, req core.Request) (core.Response, error) {
	if entry, ok := i.Storage.CachedEntry(req); ok {
		i.Metrics.RecordCacheHit(core.CacheMetricEvent{URL: req.URL, Result: core.CacheHit})
		return entry.Response, nil
	}
	return i.fetchAndStore(chain, req)
}

func (i *Interceptor) ignoreCache(chain *core.Chain, req core.Request) (core.Response, error) {
	return i.fetchAndStore(chain, req)
}

func (i *Interceptor) respectHeaders(chain *core.Chain, req core.Request) (core.Response, error) {
	entry, ok := i.Storage.CachedEntry(req)
	if !ok {
		return i.fetchAndStore(chain, req)
	}

	stale := !entry.IsFresh(time.Now(), 0)
	if stale && (entry.Directives.NoCache || entry.Directives.MustRevalidate) {
		return i.doRevalidate(chain, req, entry)
	}
	i.Metrics.RecordCacheHit(core.CacheMetricEvent{URL: req.URL, Result: core.CacheHit})
	return entry.Response, nil
}

func (i *Interceptor) revalidate(chain *core.Chain, req core.Request) (core.Response, error) {
	entry, ok := i.Storage.CachedEntry(req)
	if !ok {
		return i.fetchAndStore(chain, req)
	}
	return i.doRevalidate(chain, req, entry)
}

func (i *Interceptor) doRevalidate(chain *core.Chain, req core.Request, entry core.CacheEntry) (core.Response, error) {
	conditional := req
	if entry.HasETag {
		conditional = conditional.WithHeader("If-None-Match", entry.ETag)
	}
	if entry.HasLastMod {
		conditional = conditional.WithHeader("If-Modified-Since", entry.LastModified)
	}

	resp, err := chain.Proceed(conditional)
	if err != nil {
		return resp, err
	}

	if resp.Status == 304 {
		entry.Timestamp = time.Now()
		if storeErr := i.Storage.Store(entry); storeErr != nil {
			return entry.Response, storeErr
		}
		i.Metrics.RecordCacheHit(core.CacheMetricEvent{URL: req.URL, Result: core.CacheRevalidate})
		return entry.Response, nil
	}

	// Downstream served a fresh representation: treat as a miss and
	// replace the entry.
	i.Metrics.RecordCacheHit(core.CacheMetricEvent{URL: req.URL, Result: core.CacheMiss})
	i.storeIfEligible(req, resp)
	return resp, nil
}

func (i *Interceptor) fetchAndStore(chain *core.Chain, req core.Request) (core.Response, error) {
	resp, err := chain.Proceed(req)
	if err != nil {
		return resp, err
	}
	i.Metrics.RecordCacheHit(core.CacheMetricEvent{URL: req.URL, Result: core.CacheMiss})
	i.storeIfEligible(req, resp)
	return resp, nil
}

func (i *Interceptor) storeIfEligible(req core.Request, resp core.Response) {
	entry := BuildEntry(resp, time.Now())
	if !ShouldStore(req, resp, entry) {
		return
	}
	_ = i.Storage.Store(entry)
}
