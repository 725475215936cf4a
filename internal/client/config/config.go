// Package config loads runtime settings for the storefront CLI.
package config

import "time"

// Config holds runtime settings for the storefront client.
//
// Fields:
//   - APIBaseURL: base URL of the storefront backend.
//   - CacheDSN: sqlite DSN (usually a file path) for the fallback cache.
//   - RequestTimeout: per-request HTTP timeout.
type Config struct {
	APIBaseURL     string
	CacheDSN       string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.CacheDSN = "storefront.db"
	c.RequestTimeout = 5 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
