// Package kestrel is the client-side HTTP networking engine: a
// composable interceptor pipeline terminating at a pluggable transport,
// with authentication, caching, and retry layered on as interceptors
// (spec §1, §2).
package kestrel

import (
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kestrelnet/kestrel/core"
	"github.com/kestrelnet/kestrel/transporthttp"
)

// Config is the client's resolved configuration (spec §6).
type Config struct {
	BaseURL              string
	HasBaseURL           bool
	DefaultHeaders       core.Headers
	Timeout              time.Duration
	HasTimeout           bool
	Interceptors         []core.Interceptor
	MetricsCollector     core.NetworkMetrics
	EnableDeduplication  bool
	Transport            core.Transport
	Logger               core.Logger
}

// Option configures a Client at construction time; this is the highest
// precedence layer over defaults/file/env (SPEC_FULL §2 Ambient
// Configuration).
type Option func(*Config) error

// WithBaseURL sets the prefix used to resolve relative request URLs.
func WithBaseURL(base string) Option {
	return func(c *Config) error {
		c.BaseURL = base
		c.HasBaseURL = base != ""
		return nil
	}
}

// WithDefaultHeaders sets headers applied when absent on the request.
func WithDefaultHeaders(headers map[string]string) Option {
	return func(c *Config) error {
		h := core.NewHeaders()
		for k, v := range headers {
			h.Set(k, v)
		}
		c.DefaultHeaders = h
		return nil
	}
}

// WithTimeout sets the client-default timeout, applied if a request
// carries none.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) error {
		c.Timeout = d
		c.HasTimeout = d > 0
		return nil
	}
}

// WithInterceptors sets the ordered interceptor list executed for every
// call.
func WithInterceptors(interceptors ...core.Interceptor) Option {
	return func(c *Config) error {
		c.Interceptors = interceptors
		return nil
	}
}

// WithMetricsCollector sets the collector that receives request/error/
// retry/cache events.
func WithMetricsCollector(m core.NetworkMetrics) Option {
	return func(c *Config) error {
		c.MetricsCollector = m
		return nil
	}
}

// WithEnableDeduplication collapses concurrent identical in-flight GETs
// into one downstream call (spec §6; not part of the cache core).
func WithEnableDeduplication(enable bool) Option {
	return func(c *Config) error {
		c.EnableDeduplication = enable
		return nil
	}
}

// WithTransport overrides the default HTTP sink.
func WithTransport(t core.Transport) Option {
	return func(c *Config) error {
		c.Transport = t
		return nil
	}
}

// WithLogger sets Config.Logger. The client only keeps it in its
// configuration; it is not handed to interceptors, the transport, or
// metrics collectors, which take their own logger at construction.
func WithLogger(logger core.Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// Client is the composition root: config, default headers, base URL
// resolution, and the shared dedup group (spec §2).
type Client struct {
	config Config
	dedup  singleflight.Group
}

// NewClient builds a Client from defaults plus options, matching the
// builder's three/four-layer precedence (defaults are whatever the
// zero Config plus applied options yield; callers typically layer
// config.Load() results in before calling NewClient via options built
// from the loaded Values).
func NewClient(opts ...Option) (*Client, error) {
	cfg := Config{
		DefaultHeaders: core.NewHeaders(),
		Logger:         core.NoOpLogger{},
		MetricsCollector: core.NoOpMetrics{},
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.Transport == nil {
		cfg.Transport = transporthttp.New(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = core.NoOpLogger{}
	}
	if cfg.MetricsCollector == nil {
		cfg.MetricsCollector = core.NoOpMetrics{}
	}
	return &Client{config: cfg}, nil
}

// NewCall creates a one-shot Call wrapping req against this client
// (spec §4.5).
func (c *Client) NewCall(req core.Request) *Call {
	return newCall(c, req)
}

// resolveURL resolves req's URL against the client's base URL when the
// request URL is relative (spec §4.5 step 3).
func (c *Client) resolveURL(req core.Request) core.Request {
	if !c.config.HasBaseURL {
		return req
	}
	if isAbsoluteURL(req.URL) {
		return req
	}
	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return req
	}
	ref, err := url.Parse(req.URL)
	if err != nil {
		return req
	}
	req.URL = base.ResolveReference(ref).String()
	return req
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs()
}

// mergeDefaultHeaders merges the client's default headers underneath
// the request's own headers (request headers win on conflict).
func (c *Client) mergeDefaultHeaders(req core.Request) core.Request {
	merged := req
	c.config.DefaultHeaders.Range(func(name, value string) {
		if !merged.Headers.Has(name) {
			merged = merged.WithHeader(name, value)
		}
	})
	return merged
}

// applyDefaultTimeout applies the client-default timeout if the request
// has none.
func (c *Client) applyDefaultTimeout(req core.Request) core.Request {
	if req.HasTimeout || !c.config.HasTimeout {
		return req
	}
	return req.WithTimeout(c.config.Timeout.Seconds())
}

func (c *Client) dedupKey(req core.Request) string {
	var b strings.Builder
	b.WriteString(req.Method.String())
	b.WriteString(" ")
	b.WriteString(req.URL)
	return b.String()
}
