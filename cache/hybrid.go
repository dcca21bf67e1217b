package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/kestrelnet/kestrel/core"
)

// HybridStorage layers a bounded-capacity memory tier (LRU by
// last-access time) in front of a disk tier. Reads probe memory, then
// disk; disk hits are promoted to memory. Writes go to both. When the
// memory count exceeds capacity, the entry with the oldest last-access
// timestamp is evicted (spec §4.4).
//
// No third-party LRU library appears anywhere in the retrieved corpus,
// so the list is built directly on container/list, the standard
// doubly-linked list used for exactly this access-order-tracking shape.
type HybridStorage struct {
	mu       sync.Mutex
	capacity int
	order    *list.List               // front = most recently used
	elements map[string]*list.Element // key -> element holding lruItem
	disk     core.CacheStorage

	hits   int64
	misses int64
}

type lruItem struct {
	key   string
	entry core.CacheEntry
}

// NewHybridStorage builds a hybrid tier with the given memory capacity
// in front of disk.
func NewHybridStorage(capacity int, disk core.CacheStorage) *HybridStorage {
	return &HybridStorage{
		capacity: capacity,
		order:    list.New(),
		elements: make(map[string]*list.Element),
		disk:     disk,
	}
}

func (h *HybridStorage) CachedEntry(req core.Request) (core.CacheEntry, bool) {
	key := CacheKey(req)

	h.mu.Lock()
	if el, ok := h.elements[key]; ok {
		h.order.MoveToFront(el)
		entry := el.Value.(*lruItem).entry
		h.mu.Unlock()
		atomic.AddInt64(&h.hits, 1)
		return entry, true
	}
	h.mu.Unlock()

	entry, ok := h.disk.CachedEntry(req)
	if !ok {
		atomic.AddInt64(&h.misses, 1)
		return core.CacheEntry{}, false
	}
	atomic.AddInt64(&h.hits, 1)
	h.promote(key, entry)
	return entry, true
}

func (h *HybridStorage) CachedResponse(req core.Request) (core.Response, bool) {
	entry, ok := h.CachedEntry(req)
	if !ok {
		return core.Response{}, false
	}
	return entry.Response, true
}

func (h *HybridStorage) Store(entry core.CacheEntry) error {
	if entry.ShouldNotStore() {
		return nil
	}
	if err := h.disk.Store(entry); err != nil {
		return err
	}
	h.promote(CacheKey(entry.Response.Request), entry)
	return nil
}

func (h *HybridStorage) Remove(req core.Request) error {
	key := CacheKey(req)
	h.mu.Lock()
	if el, ok := h.elements[key]; ok {
		h.order.Remove(el)
		delete(h.elements, key)
	}
	h.mu.Unlock()
	return h.disk.Remove(req)
}

func (h *HybridStorage) ClearExpired() error {
	return h.disk.ClearExpired()
}

func (h *HybridStorage) ClearAll() error {
	h.mu.Lock()
	h.order = list.New()
	h.elements = make(map[string]*list.Element)
	h.mu.Unlock()
	return h.disk.ClearAll()
}

// Stats returns cumulative hit/miss counters for this tier.
func (h *HybridStorage) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&h.hits), atomic.LoadInt64(&h.misses)
}

func (h *HybridStorage) promote(key string, entry core.CacheEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if el, ok := h.elements[key]; ok {
		el.Value.(*lruItem).entry = entry
		h.order.MoveToFront(el)
		return
	}

	el := h.order.PushFront(&lruItem{key: key, entry: entry})
	h.elements[key] = el

	for h.order.Len() > h.capacity {
		oldest := h.order.Back()
		if oldest == nil {
			break
		}
		h.order.Remove(oldest)
		delete(h.elements, oldest.Value.(*lruItem).key)
	}
}
