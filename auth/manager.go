package auth

import (
	"context"
	"sync"
	"time"

	"github.com/kestrelnet/kestrel/core"
)

// ManagerParams configures a Manager. Logger is optional; a nil Logger
// defaults to core.NoOpLogger.
type ManagerParams struct {
	TokenStore         core.TokenStore
	Logger             core.Logger
	Coordinator        *RefreshCoordinator
	PreemptiveThreshold time.Duration // default 300s, see Credentials.IsExpiringSoon
}

// Manager is the optional, higher-level collaborator that tracks active
// credentials and a refresh provider, deciding preemptively to refresh
// when a credential is expiring soon (spec §4.2).
type Manager struct {
	mu          sync.RWMutex
	store       core.TokenStore
	logger      core.Logger
	coordinator *RefreshCoordinator
	threshold   time.Duration

	credentials Credentials
	hasCreds    bool
	refresher   RefreshFunc
}

// NewManager builds a Manager from params, filling in defaults for any
// zero-value optional fields.
func NewManager(params ManagerParams) *Manager {
	logger := params.Logger
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	coordinator := params.Coordinator
	if coordinator == nil {
		coordinator = NewRefreshCoordinator()
	}
	threshold := params.PreemptiveThreshold
	if threshold <= 0 {
		threshold = 300 * time.Second
	}
	return &Manager{
		store:       params.TokenStore,
		logger:      logger,
		coordinator: coordinator,
		threshold:   threshold,
	}
}

// SetCredentials installs the active credential set and registers the
// refresh function the coordinator will call on demand.
func (m *Manager) SetCredentials(creds Credentials, refresher RefreshFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials = creds
	m.hasCreds = true
	m.refresher = refresher
	m.store.Update(creds.AccessToken)
}

// Credentials returns the currently tracked credentials, if any.
func (m *Manager) Credentials() (Credentials, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.credentials, m.hasCreds
}

// RefreshIfExpiringSoon preemptively refreshes the token when the active
// credential is within its threshold of expiry. It is a no-op when
// there are no tracked credentials or none are close to expiring.
func (m *Manager) RefreshIfExpiringSoon(ctx context.Context, now time.Time) (string, error) {
	m.mu.RLock()
	creds, ok := m.credentials, m.hasCreds
	refresher := m.refresher
	m.mu.RUnlock()
	if !ok || refresher == nil || !creds.IsExpiringSoon(m.threshold, now) {
		token, _ := m.store.Current()
		return token, nil
	}

	m.logger.Debug("preemptive token refresh", map[string]interface{}{"provider": creds.Provider})
	token, _, err := m.coordinator.RefreshIfNeeded(ctx, m.store, refresher)
	if err != nil {
		m.logger.Error("preemptive token refresh failed", map[string]interface{}{"error": err.Error()})
		return "", err
	}
	return token, nil
}

// Logout clears tracked credentials and writes the empty string to the
// token store (spec §4.2).
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials = Credentials{}
	m.hasCreds = false
	m.refresher = nil
	m.store.Update("")
}
