package cache

import (
	"sync"
	"time"

	"github.com/kestrelnet/kestrel/core"
)

// MemoryStorage is an in-process URL->entry mapping with TTL-based
// eviction only on read (spec §4.4). Operations are serialized per
// instance via a single mutex, matching the mutex-guarded map idiom
// used throughout the corpus for in-memory stores.
type MemoryStorage struct {
	mu      sync.Mutex
	entries map[string]core.CacheEntry
	ttl     time.Duration
}

// NewMemoryStorage builds an empty memory tier. ttl is the fallback
// freshness window used when an entry has no explicit expires_at.
func NewMemoryStorage(ttl time.Duration) *MemoryStorage {
	return &MemoryStorage{entries: make(map[string]core.CacheEntry), ttl: ttl}
}

func (m *MemoryStorage) CachedEntry(req core.Request) (core.CacheEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[CacheKey(req)]
	if !ok {
		return core.CacheEntry{}, false
	}
	if !entry.IsFresh(time.Now(), m.ttl) {
		delete(m.entries, CacheKey(req))
		return core.CacheEntry{}, false
	}
	return entry, true
}

func (m *MemoryStorage) CachedResponse(req core.Request) (core.Response, bool) {
	entry, ok := m.CachedEntry(req)
	if !ok {
		return core.Response{}, false
	}
	return entry.Response, true
}

func (m *MemoryStorage) Store(entry core.CacheEntry) error {
	if entry.ShouldNotStore() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[CacheKey(entry.Response.Request)] = entry
	return nil
}

func (m *MemoryStorage) Remove(req core.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, CacheKey(req))
	return nil
}

func (m *MemoryStorage) ClearExpired() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for key, entry := range m.entries {
		if !entry.IsFresh(now, m.ttl) {
			delete(m.entries, key)
		}
	}
	return nil
}

func (m *MemoryStorage) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]core.CacheEntry)
	return nil
}
