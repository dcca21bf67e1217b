package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kestrelnet/kestrel/core"
)

// diskRecord is the persisted layout for one disk-cache file (spec §6).
type diskRecord struct {
	URL                string            `json:"url"`
	Method             string            `json:"method"`
	Status             int               `json:"status"`
	Headers            map[string]string `json:"headers"`
	Body               []byte            `json:"body"`
	Timestamp          time.Time         `json:"timestamp"`
	ETag               string            `json:"etag,omitempty"`
	LastModified       string            `json:"last_modified,omitempty"`
	ExpiresAt          time.Time         `json:"expires_at,omitempty"`
	HasExpiresAt       bool              `json:"has_expires_at,omitempty"`
	MaxAge             int               `json:"cc_max_age,omitempty"`
	HasMaxAge          bool              `json:"cc_has_max_age,omitempty"`
	NoCache            bool              `json:"cc_no_cache,omitempty"`
	NoStore            bool              `json:"cc_no_store,omitempty"`
	MustRevalidate     bool              `json:"cc_must_revalidate,omitempty"`
	Public             bool              `json:"cc_public,omitempty"`
	Private            bool              `json:"cc_private,omitempty"`
}

// DiskStorage is a filesystem-backed cache tier: one file per entry,
// named by the hex SHA-256 digest of the URL; writes are atomic
// (write-to-temp, rename); corrupt files are deleted on read; a
// background goroutine calls ClearExpired every 300s (spec §4.4).
type DiskStorage struct {
	dir    string
	ttl    time.Duration
	mu     sync.Mutex
	logger core.Logger

	stop chan struct{}
}

// NewDiskStorage builds a disk tier rooted at dir, creating it if
// necessary, and starts the background cleanup loop.
func NewDiskStorage(dir string, ttl time.Duration, logger core.Logger) (*DiskStorage, error) {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	d := &DiskStorage{dir: dir, ttl: ttl, logger: logger, stop: make(chan struct{})}
	go d.cleanupLoop()
	return d, nil
}

// Close stops the background cleanup loop.
func (d *DiskStorage) Close() {
	close(d.stop)
}

func (d *DiskStorage) cleanupLoop() {
	ticker := time.NewTicker(300 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := d.ClearExpired(); err != nil {
				d.logger.Warn("disk cache cleanup failed", map[string]interface{}{"error": err.Error()})
			}
		case <-d.stop:
			return
		}
	}
}

func (d *DiskStorage) path(key string) string {
	return filepath.Join(d.dir, key+".json")
}

func (d *DiskStorage) CachedEntry(req core.Request) (core.CacheEntry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := CacheKey(req)
	path := d.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return core.CacheEntry{}, false
	}

	var rec diskRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		os.Remove(path)
		return core.CacheEntry{}, false
	}

	entry := recordToEntry(req, rec)
	if !entry.IsFresh(time.Now(), d.ttl) {
		return core.CacheEntry{}, false
	}
	return entry, true
}

func (d *DiskStorage) CachedResponse(req core.Request) (core.Response, bool) {
	entry, ok := d.CachedEntry(req)
	if !ok {
		return core.Response{}, false
	}
	return entry.Response, true
}

func (d *DiskStorage) Store(entry core.CacheEntry) error {
	if entry.ShouldNotStore() {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	rec := entryToRecord(entry)
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	key := CacheKey(entry.Response.Request)
	final := d.path(key)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, final)
}

func (d *DiskStorage) Remove(req core.Request) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := os.Remove(d.path(CacheKey(req)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (d *DiskStorage) ClearExpired() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return err
	}
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(d.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var rec diskRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			os.Remove(path)
			continue
		}
		entry := recordToEntry(core.Request{URL: rec.URL}, rec)
		if !entry.IsFresh(now, d.ttl) {
			os.Remove(path)
		}
	}
	return nil
}

func (d *DiskStorage) ClearAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		os.Remove(filepath.Join(d.dir, e.Name()))
	}
	return nil
}

func entryToRecord(entry core.CacheEntry) diskRecord {
	headers := make(map[string]string)
	entry.Response.Headers.Range(func(name, value string) {
		headers[name] = value
	})
	rec := diskRecord{
		URL:            entry.Response.Request.URL,
		Method:         entry.Response.Request.Method.String(),
		Status:         entry.Response.Status,
		Headers:        headers,
		Body:           entry.Response.Body,
		Timestamp:      entry.Timestamp,
		ETag:           entry.ETag,
		LastModified:   entry.LastModified,
		ExpiresAt:      entry.ExpiresAt,
		HasExpiresAt:   entry.HasExpiresAt,
		MaxAge:         entry.Directives.MaxAge,
		HasMaxAge:      entry.Directives.HasMaxAge,
		NoCache:        entry.Directives.NoCache,
		NoStore:        entry.Directives.NoStore,
		MustRevalidate: entry.Directives.MustRevalidate,
		Public:         entry.Directives.Public,
		Private:        entry.Directives.Private,
	}
	return rec
}

func recordToEntry(req core.Request, rec diskRecord) core.CacheEntry {
	headers := core.NewHeaders()
	for k, v := range rec.Headers {
		headers.Set(k, v)
	}
	resp := core.Response{
		Request: core.Request{Method: core.Method(rec.Method), URL: rec.URL, Headers: core.NewHeaders()},
		Status:  rec.Status,
		Headers: headers,
		Body:    rec.Body,
		HasBody: true,
	}
	_ = req
	return core.CacheEntry{
		Response:     resp,
		Timestamp:    rec.Timestamp,
		ETag:         rec.ETag,
		HasETag:      rec.ETag != "",
		LastModified: rec.LastModified,
		HasLastMod:   rec.LastModified != "",
		ExpiresAt:    rec.ExpiresAt,
		HasExpiresAt: rec.HasExpiresAt,
		Directives: core.CacheDirectives{
			MaxAge:         rec.MaxAge,
			HasMaxAge:      rec.HasMaxAge,
			NoCache:        rec.NoCache,
			NoStore:        rec.NoStore,
			MustRevalidate: rec.MustRevalidate,
			Public:         rec.Public,
			Private:        rec.Private,
		},
	}
}
