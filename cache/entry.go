// Package cache implements the response cache: directive parsing,
// policy-driven lookup/store, and the Memory/Disk/Hybrid/Redis storage
// tiers (spec §4.4).
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/kestrelnet/kestrel/core"
)

// dateLayouts are the three wire formats Expires/Date may use, tried in
// order (spec §6).
var dateLayouts = []string{
	time.RFC1123, // "Mon, 02 Jan 2006 15:04:05 GMT"
	time.RFC850,  // "Monday, 02-Jan-06 15:04:05 MST"
	time.ANSIC,   // "Mon Jan _2 15:04:05 2006"
}

// ParseHTTPDate tries each known wire date format in turn.
func ParseHTTPDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseCacheControl splits a Cache-Control header value into its
// directive set, following the same comma-split/trim idiom used across
// the HTTP cache implementations this is grounded on.
func ParseCacheControl(header string) core.CacheDirectives {
	var d core.CacheDirectives
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, hasVal := strings.Cut(part, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		switch key {
		case "max-age":
			if hasVal {
				if n, err := strconv.Atoi(val); err == nil {
					d.MaxAge = n
					d.HasMaxAge = true
				}
			}
		case "no-cache":
			d.NoCache = true
		case "no-store":
			d.NoStore = true
		case "must-revalidate":
			d.MustRevalidate = true
		case "public":
			d.Public = true
		case "private":
			d.Private = true
		}
	}
	return d
}

// CacheKey is the SHA-256 hex digest of the absolute URL string (spec
// §4.4). Only GET requests are cacheable.
func CacheKey(req core.Request) string {
	sum := sha256.Sum256([]byte(req.CacheKeySource()))
	return hex.EncodeToString(sum[:])
}

// BuildEntry extracts the caching metadata from resp once, at store
// time, producing the value a CacheStorage tier persists.
func BuildEntry(resp core.Response, now time.Time) core.CacheEntry {
	entry := core.CacheEntry{
		Response:  resp,
		Timestamp: now,
	}

	if etag, ok := resp.Headers.Get("ETag"); ok {
		entry.ETag = etag
		entry.HasETag = true
	}
	if lm, ok := resp.Headers.Get("Last-Modified"); ok {
		entry.LastModified = lm
		entry.HasLastMod = true
	}

	if cc, ok := resp.Headers.Get("Cache-Control"); ok {
		entry.Directives = ParseCacheControl(cc)
	}

	if entry.Directives.HasMaxAge {
		entry.ExpiresAt = now.Add(time.Duration(entry.Directives.MaxAge) * time.Second)
		entry.HasExpiresAt = true
	} else if expires, ok := resp.Headers.Get("Expires"); ok {
		if t, ok := ParseHTTPDate(expires); ok {
			entry.ExpiresAt = t
			entry.HasExpiresAt = true
		}
	}

	return entry
}

// ShouldStore reports the write-policy invariant from spec §4.4: never
// store non-GET, no-store responses, or non-2xx responses.
func ShouldStore(req core.Request, resp core.Response, entry core.CacheEntry) bool {
	if !req.IsCacheable() {
		return false
	}
	if entry.ShouldNotStore() {
		return false
	}
	return resp.IsSuccessful()
}
