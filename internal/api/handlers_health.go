// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/eventmap/internal/mapsdk"
	"github.com/tomtom215/eventmap/internal/mapview"
)

// Version is reported by the health endpoint. Set at build time.
var Version = "dev"

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	// Status is healthy when the map is shown and degraded while the view
	// falls back to the list or the SDK failed.
	Status    string       `json:"status"`
	Version   string       `json:"version"`
	Mode      mapview.Mode `json:"mode"`
	MapState  string       `json:"map_state"`
	SDKState  string       `json:"sdk_state"`
	Events    int          `json:"events"`
	Markers   int          `json:"markers"`
	Scenes    int          `json:"scenes"`
	Clients   int          `json:"clients"`
	Catalog   uint64       `json:"catalog_version"`
	Bundle    bool         `json:"bundle_loaded"`
	LastError string       `json:"last_error,omitempty"`
	Uptime    float64      `json:"uptime_seconds"`
}

// Health reports the state of the view, the SDK and the display clients.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	snap, err := onLoop(r.Context(), h, h.view.Snapshot)
	if err != nil {
		NewResponseWriter(w, r).ServiceUnavailable("map view unavailable")
		return
	}

	status := "healthy"
	if snap.Mode == mapview.ModeFallback || snap.SDKState == mapsdk.Failed {
		status = "degraded"
	}

	health := HealthStatus{
		Status:    status,
		Version:   Version,
		Mode:      snap.Mode,
		MapState:  snap.MapState.String(),
		SDKState:  snap.SDKState.String(),
		Events:    snap.Events,
		Markers:   len(snap.Markers),
		Catalog:   h.catalogVersion(),
		LastError: snap.Error,
		Uptime:    time.Since(h.startTime).Seconds(),
	}
	if h.display != nil {
		health.Scenes = h.display.runtime.Live()
	}
	if h.wsHub != nil {
		health.Clients = h.wsHub.GetClientCount()
	}
	if h.bundle != nil {
		_, _, health.Bundle = h.bundle.Bundle()
	}

	NewResponseWriter(w, r).Success(health)
}

// HealthLive handles liveness probe requests.
// It only confirms the process is serving HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status": "alive",
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests.
// Ready once the view loop answers. A view in fallback mode is still ready:
// it serves the event list.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	mode, err := onLoop(r.Context(), h, h.view.Mode)
	if err != nil {
		NewResponseWriter(w, r).ServiceUnavailable("view loop not responding")
		return
	}
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status": "ready",
		"mode":   mode,
	})
}
