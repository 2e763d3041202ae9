// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

/*
Package api provides the HTTP layer for the event map.

The handlers never touch the map view directly. Every read and every retry
runs on the view loop through uiloop.Runner.Do, bounded by a timeout, so the
view, marker controller and popup manager stay single-owner.

Endpoints:

	GET  /                      map page, or the event list in fallback mode
	GET  /sdk/bundle.js         vendor SDK bundle fetched at startup
	GET  /api/v1/map            view snapshot (mode, states, markers, balloon)
	POST /api/v1/map/retry      leave fallback mode and load the map again
	GET  /api/v1/events         current events
	GET  /api/v1/events/cards   current events as localized cards
	POST /api/v1/events         replace the catalog
	GET  /api/v1/ws             display client websocket
	GET  /api/v1/health         health, plus /live and /ready probes
	GET  /metrics               Prometheus metrics

Responses use the APIResponse envelope:

	{
	  "success": true,
	  "data": {...},
	  "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 1}
	}

The retry form on the fallback page posts without scripts; for such requests
RetryMap answers with a redirect back to the page instead of JSON. Retries are
throttled globally by a token bucket (Security.RetryPerMinute and
Security.RetryBurst).

Display Clients:

Display is the websocket.Handler: interactions go to the scene runtime and
resize reports go to the map container. Its Snapshot is the first message
every client receives.
*/
package api
