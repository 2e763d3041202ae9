// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

/*
Package metrics defines the Prometheus metrics exported on /metrics.

Metrics are package-level promauto collectors registered with the default
registry. Components call the Record* helpers rather than touching the
collectors directly.

Metric groups:

  - mapsdk_*: SDK load episodes, late signals that lost the timeout race,
    manual retries and the cached bundle size.
  - map_*: live widget instances, state transitions, orphans destroyed by the
    duplicate instance guard, viewport refits, reported failures and
    fallback renders.
  - markers_*: rebuilds, insertions, cancelled insertions and coordinate
    rejections by reason.
  - popup_*: balloon opens and closes by cause.
  - catalog_*: applied and rejected catalog updates.
  - api_*, websocket_*, circuit_breaker_*: transport health.

Example PromQL:

	# share of SDK loads that time out
	sum(rate(mapsdk_loads_total{outcome="timeout"}[1h]))
	  / sum(rate(mapsdk_loads_total[1h]))

	# events silently dropped from the map
	sum by (reason) (increase(markers_coordinate_rejections_total[1d]))
*/
package metrics
