package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kestrelnet/kestrel/core"
)

// DebounceWindow is the interval after a completed refresh during which
// a new refresh_if_needed call returns the current token instead of
// starting another refresh. Exposed as a var per the Open Question
// decisions in DESIGN.md — the default is 100ms, overridable by an
// operator without a code change.
var DebounceWindow = 100 * time.Millisecond

const refreshKey = "refresh"

// RefreshFunc performs the actual credential refresh (network call to
// an identity provider, etc.) and returns the new token.
type RefreshFunc func(ctx context.Context) (string, error)

// RefreshCoordinator coalesces concurrent token refreshes: N concurrent
// callers that all observe a 401 within one debounce window invoke
// do_refresh exactly once and share its result (spec §4.2).
type RefreshCoordinator struct {
	mu     sync.Mutex // guards lastCompletion only; singleflight.Group handles the flight itself
	flight singleflight.Group

	lastCompletion time.Time
	hasCompleted   bool
}

// NewRefreshCoordinator builds a coordinator with no prior completion.
func NewRefreshCoordinator() *RefreshCoordinator {
	return &RefreshCoordinator{}
}

// RefreshIfNeeded implements the single-flight + debounce contract. If a
// refresh completed within DebounceWindow, it returns the current token
// from store without starting a new refresh. Otherwise it coalesces
// concurrent callers into a single do_refresh invocation, stores the
// result via TokenStore.Update on success, and records the completion
// time. On failure the in-flight handle is cleared (singleflight does
// this automatically once Do returns) and the error propagates; the
// next caller will retry.
func (c *RefreshCoordinator) RefreshIfNeeded(ctx context.Context, store core.TokenStore, doRefresh RefreshFunc) (string, bool, error) {
	if c.withinDebounce() {
		token, ok := store.Current()
		return token, ok, nil
	}

	result, err, _ := c.flight.Do(refreshKey, func() (interface{}, error) {
		token, rerr := doRefresh(ctx)
		if rerr != nil {
			return "", rerr
		}
		store.Update(token)
		c.markCompleted()
		return token, nil
	})
	if err != nil {
		return "", false, err
	}
	token, _ := result.(string)
	return token, token != "", nil
}

func (c *RefreshCoordinator) withinDebounce() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasCompleted {
		return false
	}
	return time.Since(c.lastCompletion) < DebounceWindow
}

func (c *RefreshCoordinator) markCompleted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastCompletion = time.Now()
	c.hasCompleted = true
}
