package auth

import (
	"context"

	"github.com/kestrelnet/kestrel/core"
)

// ManagerAuthenticator adapts a RefreshCoordinator, a TokenStore, and a
// refresh function into a core.Authenticator: on a 401 it runs the
// refresh function through the
// coordinator (coalescing concurrent callers) and, on success, returns
// the original request with a substituted Authorization header.
type ManagerAuthenticator struct {
	Coordinator *RefreshCoordinator
	Store       core.TokenStore
	Refresh     RefreshFunc
}

// NewManagerAuthenticator builds an Authenticator wired to coordinator,
// store, and the refresh function supplied by the caller's identity
// provider integration.
func NewManagerAuthenticator(coordinator *RefreshCoordinator, store core.TokenStore, refresh RefreshFunc) *ManagerAuthenticator {
	return &ManagerAuthenticator{Coordinator: coordinator, Store: store, Refresh: refresh}
}

func (a *ManagerAuthenticator) Authenticate(original core.Request, _ core.Response) (core.Request, bool) {
	token, ok, err := a.Coordinator.RefreshIfNeeded(context.Background(), a.Store, a.Refresh)
	if err != nil || !ok || token == "" {
		return core.Request{}, false
	}
	return original.WithHeader("Authorization", "Bearer "+token), true
}
