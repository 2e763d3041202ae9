// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

/*
Package middleware provides HTTP middleware components for the application.

All middleware has the chi signature func(http.Handler) http.Handler.

Key Components:

  - RequestID: UUID request IDs, echoed in X-Request-ID and added to the
    logging context
  - PrometheusMetrics: request count and latency labeled by chi route
    pattern
  - Compression: gzip for the fallback page, the SDK bundle and JSON

Middleware Stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Group(func(r chi.Router) {
	    r.Use(middleware.Compression)
	    r.Get("/", handler.Page)
	})
	r.Get("/api/v1/ws", handler.WebSocket) // never compressed

PrometheusMetrics keeps http.Hijacker working so it can wrap the websocket
route.
*/
package middleware
