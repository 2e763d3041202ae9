// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

/*
Package config provides centralized configuration management for Eventmap.

Configuration is layered with Koanf v2: built-in defaults, then an optional
YAML file, then environment variables. The result is validated once and is
read-only afterwards.

# Configuration Sources

  - Defaults (defaultConfig)
  - YAML file: CONFIG_PATH, or the first of config.yaml, config.yml,
    /etc/eventmap/config.yaml, /etc/eventmap/config.yml
  - Environment variables (highest priority)

# Environment Variables

HTTP Server (ServerConfig):
  - HTTP_HOST: Bind address (default: 0.0.0.0)
  - HTTP_PORT: Listen port (default: 3857)
  - HTTP_TIMEOUT: Request timeout (default: 30s)
  - SHUTDOWN_TIMEOUT: Graceful shutdown deadline (default: 10s)
  - ENVIRONMENT: development, staging or production

Map SDK (SDKConfig):
  - MAP_SDK_URL, MAP_SDK_API_KEY, MAP_SDK_LANG
  - MAP_SDK_LOAD_TIMEOUT: Readiness deadline (default: 5s)
  - MAP_SDK_FETCH_TIMEOUT, MAP_SDK_MAX_BYTES

Map (MapConfig):
  - MAP_CONTAINER_ID: DOM id of the map element (default: events-map)
  - MAP_CENTER_LAT, MAP_CENTER_LNG, MAP_ZOOM, MAP_MAX_ZOOM
  - MAP_WIDTH, MAP_HEIGHT: Size until a client reports one

Markers (MarkersConfig):
  - MARKER_BASE_DELAY, MARKER_STEP_DELAY (default: 60ms each)
  - MARKER_CYCLE (default: 10)
  - MARKER_ENTRANCE_DURATION (default: 400ms)
  - MARKER_ENTRANCE_OFFSET (default: 24)

Catalog (CatalogConfig):
  - CATALOG_PATH: JSON event file
  - CATALOG_WATCH: Reload on change (default: true)

Fallback (FallbackConfig):
  - LOCALE (default: ru), TIMEZONE (default: Europe/Moscow)
  - PLACEHOLDER_IMAGE, RETRY_ACTION

Security (SecurityConfig):
  - CORS_ORIGINS: Comma-separated origins
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
  - RETRY_PER_MINUTE, RETRY_BURST: Map retry limiter

Logging (LoggingConfig):
  - LOG_LEVEL: trace, debug, info, warn, error (default: info)
  - LOG_FORMAT: json or console (default: json)
  - LOG_CALLER: Include caller information

# Usage Example

	cfg, err := config.Load()
	if err != nil {
	    log.Fatalf("Configuration error: %v", err)
	}
	fmt.Printf("Server listening on %s\n", cfg.Server.Addr())
*/
package config
