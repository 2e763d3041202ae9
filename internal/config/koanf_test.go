// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns valid defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 3857 {
		t.Errorf("Server.Port = %d, want 3857", cfg.Server.Port)
	}
	if cfg.SDK.LoadTimeout != 5*time.Second {
		t.Errorf("SDK.LoadTimeout = %v, want 5s", cfg.SDK.LoadTimeout)
	}
	if cfg.Markers.BaseDelay != 60*time.Millisecond || cfg.Markers.StepDelay != 60*time.Millisecond {
		t.Errorf("marker delays = %v/%v, want 60ms/60ms", cfg.Markers.BaseDelay, cfg.Markers.StepDelay)
	}
	if cfg.Markers.Cycle != 10 {
		t.Errorf("Markers.Cycle = %d, want 10", cfg.Markers.Cycle)
	}
	if cfg.Map.ContainerID != "events-map" {
		t.Errorf("Map.ContainerID = %q", cfg.Map.ContainerID)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"MAP_SDK_URL", "sdk.url"},
		{"MAP_SDK_LOAD_TIMEOUT", "sdk.load_timeout"},
		{"MARKER_STEP_DELAY", "markers.step_delay"},
		{"CATALOG_PATH", "catalog.path"},
		{"CORS_ORIGINS", "security.cors_origins"},
		{"DISABLE_RATE_LIMIT", "security.rate_limit_disabled"},
		{"log_level", "logging.level"},
		{"HOME", ""},
		{"PATH", ""},
		{"RANDOM_UNMAPPED", ""},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Run("env path wins", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("server:\n  port: 1\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv(ConfigPathEnvVar, path)
		if got := findConfigFile(); got != path {
			t.Errorf("findConfigFile() = %q, want %q", got, path)
		}
	})

	t.Run("missing env path falls through", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))
		t.Chdir(t.TempDir())
		orig := DefaultConfigPaths
		DefaultConfigPaths = []string{"config.yaml"}
		defer func() { DefaultConfigPaths = orig }()

		if got := findConfigFile(); got != "" {
			t.Errorf("findConfigFile() = %q, want empty", got)
		}
	})
}

func TestLoadWithKoanfEnvVars(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Chdir(t.TempDir())

	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MAP_SDK_LOAD_TIMEOUT", "2s")
	t.Setenv("MARKER_CYCLE", "5")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.SDK.LoadTimeout != 2*time.Second {
		t.Errorf("SDK.LoadTimeout = %v, want 2s", cfg.SDK.LoadTimeout)
	}
	if cfg.Markers.Cycle != 5 {
		t.Errorf("Markers.Cycle = %d, want 5", cfg.Markers.Cycle)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}

	// Defaults still apply to unset values
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0 (default)", cfg.Server.Host)
	}
	if cfg.Markers.StepDelay != 60*time.Millisecond {
		t.Errorf("Markers.StepDelay = %v, want 60ms (default)", cfg.Markers.StepDelay)
	}
}

func TestLoadWithKoanfConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 8080
sdk:
  url: https://maps.example.com/sdk/v3/bundle.js
  load_timeout: 3s
map:
  container_id: family-map
  center_lat: 59.93
  center_lng: 30.36
catalog:
  path: /data/events.json
  watch: false
security:
  cors_origins:
    - https://events.example
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.SDK.URL != "https://maps.example.com/sdk/v3/bundle.js" {
		t.Errorf("SDK.URL = %q", cfg.SDK.URL)
	}
	if cfg.SDK.LoadTimeout != 3*time.Second {
		t.Errorf("SDK.LoadTimeout = %v, want 3s", cfg.SDK.LoadTimeout)
	}
	if cfg.Map.ContainerID != "family-map" || cfg.Map.CenterLat != 59.93 {
		t.Errorf("Map = %+v", cfg.Map)
	}
	if cfg.Catalog.Path != "/data/events.json" || cfg.Catalog.Watch {
		t.Errorf("Catalog = %+v", cfg.Catalog)
	}
	if len(cfg.Security.CORSOrigins) != 1 || cfg.Security.CORSOrigins[0] != "https://events.example" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
}

func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8080\nlogging:\n  level: warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090 (env)", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn (file)", cfg.Logging.Level)
	}
}

func TestLoadWithKoanfValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "invalid log level",
			env:     map[string]string{"LOG_LEVEL": "verbose"},
			wantErr: "LOG_LEVEL",
		},
		{
			name:    "sdk url with query",
			env:     map[string]string{"MAP_SDK_URL": "https://maps.example.com/sdk?apikey=x"},
			wantErr: "MAP_SDK_URL",
		},
		{
			name:    "zero cycle",
			env:     map[string]string{"MARKER_CYCLE": "0"},
			wantErr: "MARKER_CYCLE",
		},
		{
			name:    "bad container id",
			env:     map[string]string{"MAP_CONTAINER_ID": "1map"},
			wantErr: "map configuration",
		},
		{
			name:    "wildcard cors in production",
			env:     map[string]string{"ENVIRONMENT": "production", "CORS_ORIGINS": "*"},
			wantErr: "CORS_ORIGINS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(ConfigPathEnvVar, "")
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadWithKoanf()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}
