// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package config

import (
	"fmt"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without a zoneinfo database
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting via environment variables
//
// Configuration Categories:
//
//  1. Map:
//     - SDK: Vendor SDK bundle location and load timeout
//     - Map: Container and initial viewport
//     - Markers: Staggered entrance animation timing
//
//  2. Data:
//     - Catalog: Event catalog file and hot reload
//     - Fallback: List rendering when the map is unavailable
//
//  3. Infrastructure:
//     - Server: HTTP server configuration (port, host, timeout)
//     - Security: CORS and rate limiting
//     - Logging: Log levels and output formats
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	srv := http.Server{Addr: cfg.Server.Addr()}
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	SDK      SDKConfig      `koanf:"sdk"`
	Map      MapConfig      `koanf:"map"`
	Markers  MarkersConfig  `koanf:"markers"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Fallback FallbackConfig `koanf:"fallback"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // "development", "staging", "production" (default: "development")
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SDKConfig locates the vendor map SDK bundle.
//
// Environment Variables:
//   - MAP_SDK_URL: Bundle URL (default: https://api-maps.yandex.ru/2.1/)
//   - MAP_SDK_API_KEY: Vendor API key (optional)
//   - MAP_SDK_LANG: Bundle language (default: ru_RU)
//   - MAP_SDK_LOAD_TIMEOUT: Readiness deadline per load attempt (default: 5s)
//   - MAP_SDK_FETCH_TIMEOUT: HTTP timeout for the bundle download (default: 10s)
//   - MAP_SDK_MAX_BYTES: Bundle size cap (default: 8MiB)
type SDKConfig struct {
	URL          string        `koanf:"url"`
	APIKey       string        `koanf:"api_key"`
	Lang         string        `koanf:"lang"`
	LoadTimeout  time.Duration `koanf:"load_timeout"`
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
	MaxBytes     int64         `koanf:"max_bytes"`
}

// MapConfig holds the map container and initial viewport.
type MapConfig struct {
	ContainerID string  `koanf:"container_id" validate:"required,domid"`
	CenterLat   float64 `koanf:"center_lat" validate:"latitude"`
	CenterLng   float64 `koanf:"center_lng" validate:"longitude"`
	Zoom        float64 `koanf:"zoom" validate:"gte=0,lte=21"`
	MaxZoom     float64 `koanf:"max_zoom" validate:"gte=0,lte=21"`
	Width       int     `koanf:"width" validate:"gt=0"`  // Initial container width until a client reports its size
	Height      int     `koanf:"height" validate:"gt=0"` // Initial container height until a client reports its size
}

// MarkersConfig controls the staggered marker entrance.
//
// Marker i appears BaseDelay + StepDelay*(i mod Cycle) after a rebuild.
// Zero values select the stock stagger.
type MarkersConfig struct {
	BaseDelay        time.Duration `koanf:"base_delay"`
	StepDelay        time.Duration `koanf:"step_delay"`
	Cycle            int           `koanf:"cycle"`
	EntranceDuration time.Duration `koanf:"entrance_duration"`
	EntranceOffset   float64       `koanf:"entrance_offset"`
}

// CatalogConfig locates the event catalog.
type CatalogConfig struct {
	Path  string `koanf:"path"`  // JSON catalog file; empty disables the file source
	Watch bool   `koanf:"watch"` // Reload the file when it changes
}

// FallbackConfig controls card and list rendering.
type FallbackConfig struct {
	Locale           string `koanf:"locale"`
	Timezone         string `koanf:"timezone"`
	PlaceholderImage string `koanf:"placeholder_image"`
	RetryAction      string `koanf:"retry_action"`
}

// SecurityConfig holds CORS and rate limiting settings
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	// RetryPerMinute bounds accepted map retries across all clients.
	RetryPerMinute int `koanf:"retry_per_minute"`
	RetryBurst     int `koanf:"retry_burst"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load reads configuration from defaults, config file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
