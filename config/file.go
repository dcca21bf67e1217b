// Package config loads client configuration from, in priority order:
// built-in defaults, a YAML file, environment variables, then
// functional options applied at NewClient (highest priority, handled
// in the root package). This package covers the first three layers
// (SPEC_FULL §2 Ambient Configuration).
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the shape of the optional YAML config file.
type File struct {
	BaseURL        string            `yaml:"base_url"`
	TimeoutSeconds float64           `yaml:"timeout_seconds"`
	MaxRetries     int               `yaml:"max_retries"`
	RetryDelayMS   int               `yaml:"retry_delay_ms"`
	LogLevel       string            `yaml:"log_level"`
	DefaultHeaders map[string]string `yaml:"default_headers"`
}

// Values is the resolved configuration after layering defaults, file,
// and environment variables. The root package's functional options are
// applied on top of this by the caller.
type Values struct {
	BaseURL        string
	HasBaseURL     bool
	Timeout        time.Duration
	HasTimeout     bool
	MaxRetries     int
	HasMaxRetries  bool
	RetryDelay     time.Duration
	HasRetryDelay  bool
	LogLevel       string
	HasLogLevel    bool
	DefaultHeaders map[string]string
}

// Defaults returns the built-in configuration defaults (lowest
// precedence layer).
func Defaults() Values {
	return Values{
		Timeout:       30 * time.Second,
		HasTimeout:    true,
		MaxRetries:    3,
		HasMaxRetries: true,
		RetryDelay:    500 * time.Millisecond,
		HasRetryDelay: true,
		LogLevel:      "INFO",
		HasLogLevel:   true,
	}
}

// Load layers Defaults(), an optional YAML file at path (skipped if
// path is empty or the file doesn't exist), and environment variables
// (KESTREL_BASE_URL, KESTREL_TIMEOUT_SECONDS, KESTREL_MAX_RETRIES,
// KESTREL_RETRY_DELAY_MS, KESTREL_LOG_LEVEL), each layer overriding the
// one before it.
func Load(path string) (Values, error) {
	v := Defaults()

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			var f File
			if err := yaml.Unmarshal(data, &f); err != nil {
				return v, err
			}
			applyFile(&v, f)
		} else if !os.IsNotExist(err) {
			return v, err
		}
	}

	applyEnv(&v)
	return v, nil
}

func applyFile(v *Values, f File) {
	if f.BaseURL != "" {
		v.BaseURL = f.BaseURL
		v.HasBaseURL = true
	}
	if f.TimeoutSeconds > 0 {
		v.Timeout = time.Duration(f.TimeoutSeconds * float64(time.Second))
		v.HasTimeout = true
	}
	if f.MaxRetries > 0 {
		v.MaxRetries = f.MaxRetries
		v.HasMaxRetries = true
	}
	if f.RetryDelayMS > 0 {
		v.RetryDelay = time.Duration(f.RetryDelayMS) * time.Millisecond
		v.HasRetryDelay = true
	}
	if f.LogLevel != "" {
		v.LogLevel = f.LogLevel
		v.HasLogLevel = true
	}
	if len(f.DefaultHeaders) > 0 {
		v.DefaultHeaders = f.DefaultHeaders
	}
}

func applyEnv(v *Values) {
	if s := os.Getenv("KESTREL_BASE_URL"); s != "" {
		v.BaseURL = s
		v.HasBaseURL = true
	}
	if s := os.Getenv("KESTREL_TIMEOUT_SECONDS"); s != "" {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			v.Timeout = time.Duration(n * float64(time.Second))
			v.HasTimeout = true
		}
	}
	if s := os.Getenv("KESTREL_MAX_RETRIES"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			v.MaxRetries = n
			v.HasMaxRetries = true
		}
	}
	if s := os.Getenv("KESTREL_RETRY_DELAY_MS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			v.RetryDelay = time.Duration(n) * time.Millisecond
			v.HasRetryDelay = true
		}
	}
	if s := os.Getenv("KESTREL_LOG_LEVEL"); s != "" {
		v.LogLevel = s
		v.HasLogLevel = true
	}
}
