// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SDK Loader Metrics
	SDKLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapsdk_loads_total",
			Help: "Total number of settled SDK load episodes",
		},
		[]string{"outcome"}, // ready, load_error, timeout
	)

	SDKLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mapsdk_load_duration_seconds",
			Help:    "Time from load start until the episode settled",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
		},
		[]string{"outcome"},
	)

	SDKLateSignals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapsdk_late_signals_total",
			Help: "Signals ignored because their load episode had already settled",
		},
		[]string{"signal"}, // ready, fail, timeout
	)

	SDKLoadState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mapsdk_load_state",
			Help: "Current SDK load state (0=not_requested, 1=loading, 2=ready, 3=failed)",
		},
	)

	SDKRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapsdk_retries_total",
			Help: "Manual SDK retry requests",
		},
		[]string{"result"}, // accepted, ignored, throttled
	)

	SDKBundleBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mapsdk_bundle_bytes",
			Help: "Size of the cached SDK bundle",
		},
	)

	// Map Instance Metrics
	MapInstancesLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "map_instances_live",
			Help: "Current number of live map widget instances",
		},
	)

	MapStateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "map_state_transitions_total",
			Help: "Map instance state transitions",
		},
		[]string{"to_state"},
	)

	MapOrphansDestroyed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "map_orphans_destroyed_total",
			Help: "Orphaned map instances destroyed by the duplicate instance guard",
		},
	)

	MapRefits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "map_viewport_refits_total",
			Help: "Viewport refits triggered by resize or marker changes",
		},
	)

	MapErrorsReported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "map_errors_reported_total",
			Help: "Failure episodes reported to the owner error callback",
		},
		[]string{"kind"}, // load_error, timeout
	)

	FallbackRenders = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "map_fallback_renders_total",
			Help: "Number of times the fallback list was rendered",
		},
	)

	// Marker Metrics
	MarkerRebuilds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "markers_rebuilds_total",
			Help: "Total number of marker set rebuilds",
		},
	)

	MarkersPlotted = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "markers_plotted",
			Help: "Markers computed by the most recent rebuild",
		},
	)

	MarkersInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "markers_inserted_total",
			Help: "Markers inserted into the visible collection",
		},
	)

	MarkerInsertionsCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "markers_insertions_cancelled_total",
			Help: "Pending staggered insertions cancelled by a rebuild or teardown",
		},
	)

	CoordinateRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "markers_coordinate_rejections_total",
			Help: "Events dropped from the marker set because of their coordinate",
		},
		[]string{"reason"}, // empty, malformed, out_of_range
	)

	// Popup Metrics
	PopupOpens = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "popup_opens_total",
			Help: "Balloons opened",
		},
	)

	PopupCloses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "popup_closes_total",
			Help: "Balloons closed",
		},
		[]string{"cause"}, // replaced, map_click, client, close_all
	)

	// Catalog Metrics
	CatalogUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_updates_total",
			Help: "Event catalog updates processed",
		},
		[]string{"result"}, // applied, rejected
	)

	CatalogEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_events",
			Help: "Events in the current catalog",
		},
	)

	CatalogRecordsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_records_skipped_total",
			Help: "Catalog records skipped because they failed validation",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// SDK load state gauge values.
const (
	SDKStateNotRequested = 0
	SDKStateLoading      = 1
	SDKStateReady        = 2
	SDKStateFailed       = 3
)

// RecordSDKLoad records a settled load episode.
func RecordSDKLoad(outcome string, duration time.Duration) {
	SDKLoadsTotal.WithLabelValues(outcome).Inc()
	SDKLoadDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordSDKLateSignal records a signal that lost the readiness race.
func RecordSDKLateSignal(signal string) {
	SDKLateSignals.WithLabelValues(signal).Inc()
}

// SetSDKState publishes the current loader state.
func SetSDKState(state int) {
	SDKLoadState.Set(float64(state))
}

// RecordSDKRetry records a manual retry request.
func RecordSDKRetry(result string) {
	SDKRetries.WithLabelValues(result).Inc()
}

// RecordMapState records a map instance state transition.
func RecordMapState(state string) {
	MapStateTransitions.WithLabelValues(state).Inc()
}

// RecordMapCreated and RecordMapDestroyed track live widget instances.
func RecordMapCreated()   { MapInstancesLive.Inc() }
func RecordMapDestroyed() { MapInstancesLive.Dec() }

// RecordOrphanDestroyed records a duplicate instance guard trigger.
func RecordOrphanDestroyed() {
	MapOrphansDestroyed.Inc()
}

// RecordRefit records a viewport refit.
func RecordRefit() {
	MapRefits.Inc()
}

// RecordMapError records a failure episode reported to the owner.
func RecordMapError(kind string) {
	MapErrorsReported.WithLabelValues(kind).Inc()
}

// RecordFallbackRender records a fallback list render.
func RecordFallbackRender() {
	FallbackRenders.Inc()
}

// RecordMarkerRebuild records a rebuild and its resulting marker count.
func RecordMarkerRebuild(plotted int) {
	MarkerRebuilds.Inc()
	MarkersPlotted.Set(float64(plotted))
}

// RecordMarkersInserted records markers made visible.
func RecordMarkersInserted(n int) {
	MarkersInserted.Add(float64(n))
}

// RecordInsertionsCancelled records pending insertions that were dropped.
func RecordInsertionsCancelled(n int) {
	if n > 0 {
		MarkerInsertionsCancelled.Add(float64(n))
	}
}

// RecordCoordinateRejection records an event dropped for its coordinate.
func RecordCoordinateRejection(reason string) {
	CoordinateRejections.WithLabelValues(reason).Inc()
}

// RecordPopupOpen records an opened balloon.
func RecordPopupOpen() {
	PopupOpens.Inc()
}

// RecordPopupClose records a closed balloon.
func RecordPopupClose(cause string) {
	PopupCloses.WithLabelValues(cause).Inc()
}

// RecordCatalogUpdate records a catalog update and, when applied, its size.
func RecordCatalogUpdate(applied bool, events, skipped int) {
	if !applied {
		CatalogUpdates.WithLabelValues("rejected").Inc()
		return
	}
	CatalogUpdates.WithLabelValues("applied").Inc()
	CatalogEvents.Set(float64(events))
	if skipped > 0 {
		CatalogRecordsSkipped.Add(float64(skipped))
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
