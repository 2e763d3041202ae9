// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

/*
Package main is the entry point for the Eventmap server.

Eventmap shows a catalog of family events on an interactive vendor map.
Each event with a usable coordinate gets a marker; markers drop in one
after another, and tapping one opens a card with the date, venue and
price. When the map SDK cannot be loaded in time the page shows the same
cards as a plain list with a "try again" button.

# Application Architecture

	RootSupervisor ("eventmap")
	├── DataSupervisor ("data-layer")
	│   └── catalog-watcher (when CATALOG_PATH is set)
	├── ViewSupervisor ("view-layer")
	│   ├── ui-loop (owns the map, marker and popup controllers)
	│   └── catalog-consumer
	├── MessagingSupervisor ("messaging-layer")
	│   └── websocket-hub (display clients)
	└── APISupervisor ("api-layer")
	    └── http-server

Initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Cards and fallback list for the configured locale and time zone
 4. SDK loader with the bundle source behind a circuit breaker
 5. Map manager and view, mounted on the ui loop
 6. Display and websocket hub
 7. Catalog feed, watcher and consumer
 8. Chi router and HTTP server
 9. Supervisor tree

# Configuration

Priority: Environment variables > Config file > Defaults

	HTTP_PORT=3857
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	MAP_SDK_URL=https://api-maps.yandex.ru/2.1/
	MAP_SDK_API_KEY=<key>
	MAP_SDK_LOAD_TIMEOUT=5s

	MAP_CONTAINER_ID=events-map
	MAP_CENTER_LAT=55.751244
	MAP_CENTER_LNG=37.618423

	CATALOG_PATH=/data/events.json
	CATALOG_WATCH=true

	LOCALE=ru
	TIMEZONE=Europe/Moscow
	CORS_ORIGINS=https://family.example

# Signal Handling

On SIGINT or SIGTERM the HTTP server drains, the hub closes every display
client with a shutdown reason, and the ui loop stops. Services that do not
stop within their timeout are reported and the process exits non-zero.

# Usage Examples

	CATALOG_PATH=./events.json LOG_FORMAT=console go run ./cmd/server

Docker:

	docker run -d \
	  -e CATALOG_PATH=/data/events.json \
	  -v ./events.json:/data/events.json:ro \
	  -p 3857:3857 \
	  ghcr.io/tomtom215/eventmap

# Port 3857

The default port 3857 references EPSG:3857 (Web Mercator projection),
the projection the vendor map renders in.

# See Also

  - internal/config: Configuration management
  - internal/supervisor: Process supervision
  - internal/api: HTTP handlers and routing
  - internal/mapview: Map instance manager and view
*/
package main
