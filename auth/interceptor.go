package auth

import "github.com/kestrelnet/kestrel/core"

// Interceptor attaches a bearer token to outbound requests and recovers
// from a single 401 by consulting an Authenticator, which is expected to
// internally invoke a RefreshCoordinator (spec §4.2).
type Interceptor struct {
	Store         core.TokenStore
	Authenticator core.Authenticator
}

// NewInterceptor builds an auth interceptor over store and authenticator.
func NewInterceptor(store core.TokenStore, authenticator core.Authenticator) *Interceptor {
	return &Interceptor{Store: store, Authenticator: authenticator}
}

func (i *Interceptor) Intercept(chain *core.Chain) (core.Response, error) {
	req := chain.Request()

	if !req.Headers.Has("Authorization") {
		if token, ok := i.Store.Current(); ok && token != "" {
			req = req.WithHeader("Authorization", "Bearer "+token)
		}
	}

	resp, err := chain.Proceed(req)
	if err != nil {
		return resp, err
	}
	if resp.Status != 401 {
		return resp, nil
	}
	if i.Authenticator == nil {
		return resp, nil
	}

	newReq, ok := i.Authenticator.Authenticate(req, resp)
	if !ok {
		// Authenticator surrendered: surface the original 401 unchanged.
		return resp, nil
	}
	// Retry exactly once after a successful refresh; a second 401 is
	// surfaced as-is (chained-401 bound from spec §9).
	return chain.Proceed(newReq)
}
