package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelnet/kestrel/core"
)

func TestParseHTTPDateAllThreeFormats(t *testing.T) {
	want := time.Date(2026, time.January, 2, 15, 4, 5, 0, time.UTC)

	cases := []string{
		"Fri, 02 Jan 2026 15:04:05 GMT",
		"Friday, 02-Jan-26 15:04:05 UTC",
		"Fri Jan  2 15:04:05 2026",
	}
	for _, c := range cases {
		got, ok := ParseHTTPDate(c)
		assert.True(t, ok, "expected %q to parse", c)
		assert.True(t, want.Equal(got), "parsed %v, want %v for %q", got, want, c)
	}
}

func TestParseHTTPDateInvalid(t *testing.T) {
	_, ok := ParseHTTPDate("not a date")
	assert.False(t, ok)
	_, ok = ParseHTTPDate("")
	assert.False(t, ok)
}

func TestParseCacheControlDirectives(t *testing.T) {
	d := ParseCacheControl("max-age=60, no-cache, must-revalidate")
	assert.Equal(t, 60, d.MaxAge)
	assert.True(t, d.HasMaxAge)
	assert.True(t, d.NoCache)
	assert.True(t, d.MustRevalidate)
	assert.False(t, d.NoStore)
	assert.False(t, d.Public)
}

func TestParseCacheControlNoStoreAndPublic(t *testing.T) {
	d := ParseCacheControl("no-store, public")
	assert.True(t, d.NoStore)
	assert.True(t, d.Public)
	assert.False(t, d.HasMaxAge)
}

func TestCacheKeyIsStableForSameURL(t *testing.T) {
	req1 := core.NewRequest(core.MethodGET, "https://example.com/a")
	req2 := core.NewRequest(core.MethodGET, "https://example.com/a")
	req3 := core.NewRequest(core.MethodGET, "https://example.com/b")

	assert.Equal(t, CacheKey(req1), CacheKey(req2))
	assert.NotEqual(t, CacheKey(req1), CacheKey(req3))
}

func TestBuildEntryExtractsMetadata(t *testing.T) {
	req := core.NewRequest(core.MethodGET, "https://example.com")
	headers := core.NewHeaders()
	headers.Set("ETag", `"abc123"`)
	headers.Set("Last-Modified", "Fri, 02 Jan 2026 15:04:05 GMT")
	headers.Set("Cache-Control", "max-age=120")
	resp := core.NewResponse(req, 200, headers, []byte("body"))

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := BuildEntry(resp, now)

	assert.True(t, entry.HasETag)
	assert.Equal(t, `"abc123"`, entry.ETag)
	assert.True(t, entry.HasLastMod)
	assert.True(t, entry.HasExpiresAt)
	assert.Equal(t, now.Add(120*time.Second), entry.ExpiresAt)
}

func TestBuildEntryFallsBackToExpiresHeader(t *testing.T) {
	req := core.NewRequest(core.MethodGET, "https://example.com")
	headers := core.NewHeaders()
	headers.Set("Expires", "Fri, 02 Jan 2026 15:04:05 GMT")
	resp := core.NewResponse(req, 200, headers, nil)

	entry := BuildEntry(resp, time.Now())
	assert.True(t, entry.HasExpiresAt)
	assert.Equal(t, 2026, entry.ExpiresAt.Year())
}

func TestShouldStoreRejectsNonGETNoStoreAndErrors(t *testing.T) {
	get := core.NewRequest(core.MethodGET, "https://example.com")
	post := core.NewRequest(core.MethodPOST, "https://example.com")

	okEntry := core.CacheEntry{}
	okResp := core.NewResponse(get, 200, core.NewHeaders(), nil)
	assert.True(t, ShouldStore(get, okResp, okEntry))
	assert.False(t, ShouldStore(post, okResp, okEntry))

	noStoreEntry := core.CacheEntry{Directives: core.CacheDirectives{NoStore: true}}
	assert.False(t, ShouldStore(get, okResp, noStoreEntry))

	errResp := core.NewResponse(get, 500, core.NewHeaders(), nil)
	assert.False(t, ShouldStore(get, errResp, okEntry))
}
