package interceptors

import "github.com/kestrelnet/kestrel/core"

// DefaultHeadersInterceptor merges a set of default headers onto every
// request, underneath request headers (request headers win on
// conflict). This mirrors Client.Config.default_headers (spec §4.5,
// §6) but as a standalone interceptor for callers composing their own
// chain outside the root Client.
type DefaultHeadersInterceptor struct {
	Defaults core.Headers
}

// NewDefaultHeadersInterceptor builds an interceptor that applies
// defaults whenever the request doesn't already set a header.
func NewDefaultHeadersInterceptor(defaults core.Headers) *DefaultHeadersInterceptor {
	return &DefaultHeadersInterceptor{Defaults: defaults}
}

func (d *DefaultHeadersInterceptor) Intercept(chain *core.Chain) (core.Response, error) {
	req := chain.Request()
	merged := req
	d.Defaults.Range(func(name, value string) {
		if !merged.Headers.Has(name) {
			merged = merged.WithHeader(name, value)
		}
	})
	return chain.Proceed(merged)
}
