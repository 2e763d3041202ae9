// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/eventmap/config.yaml",
	"/etc/eventmap/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3857,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		SDK: SDKConfig{
			URL:          "https://api-maps.yandex.ru/2.1/",
			Lang:         "ru_RU",
			LoadTimeout:  5 * time.Second,
			FetchTimeout: 10 * time.Second,
			MaxBytes:     8 << 20,
		},
		Map: MapConfig{
			ContainerID: "events-map",
			CenterLat:   55.751244, // Moscow until markers are fitted
			CenterLng:   37.618423,
			Zoom:        10,
			MaxZoom:     16,
			Width:       1024,
			Height:      640,
		},
		Markers: MarkersConfig{
			BaseDelay:        60 * time.Millisecond,
			StepDelay:        60 * time.Millisecond,
			Cycle:            10,
			EntranceDuration: 400 * time.Millisecond,
			EntranceOffset:   24,
		},
		Catalog: CatalogConfig{
			Path:  "",
			Watch: true,
		},
		Fallback: FallbackConfig{
			Locale:           "ru",
			Timezone:         "Europe/Moscow",
			PlaceholderImage: "",
			RetryAction:      "/api/v1/map/retry",
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{},
			RetryPerMinute:    6,
			RetryBurst:        2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Built-in defaults
//  2. Config file (optional, YAML)
//  3. Environment variables (highest priority)
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// MAP_SDK_URL -> sdk.url
	// MARKER_STEP_DELAY -> markers.step_delay
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the path of the config file to load, or "" when
// none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to config paths.
var envMappings = map[string]string{
	// Server
	"http_port":        "server.port",
	"http_host":        "server.host",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	// Map SDK
	"map_sdk_url":           "sdk.url",
	"map_sdk_api_key":       "sdk.api_key",
	"map_sdk_lang":          "sdk.lang",
	"map_sdk_load_timeout":  "sdk.load_timeout",
	"map_sdk_fetch_timeout": "sdk.fetch_timeout",
	"map_sdk_max_bytes":     "sdk.max_bytes",

	// Map
	"map_container_id": "map.container_id",
	"map_center_lat":   "map.center_lat",
	"map_center_lng":   "map.center_lng",
	"map_zoom":         "map.zoom",
	"map_max_zoom":     "map.max_zoom",
	"map_width":        "map.width",
	"map_height":       "map.height",

	// Marker animation
	"marker_base_delay":        "markers.base_delay",
	"marker_step_delay":        "markers.step_delay",
	"marker_cycle":             "markers.cycle",
	"marker_entrance_duration": "markers.entrance_duration",
	"marker_entrance_offset":   "markers.entrance_offset",

	// Catalog
	"catalog_path":  "catalog.path",
	"catalog_watch": "catalog.watch",

	// Fallback and cards
	"locale":            "fallback.locale",
	"timezone":          "fallback.timezone",
	"placeholder_image": "fallback.placeholder_image",
	"retry_action":      "fallback.retry_action",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",
	"retry_per_minute":    "security.retry_per_minute",
	"retry_burst":         "security.retry_burst",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
