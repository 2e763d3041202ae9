// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package mapview

import (
	"github.com/rs/zerolog"

	"github.com/tomtom215/eventmap/internal/logging"
	"github.com/tomtom215/eventmap/internal/mapsdk"
	"github.com/tomtom215/eventmap/internal/markers"
	"github.com/tomtom215/eventmap/internal/metrics"
	"github.com/tomtom215/eventmap/internal/models"
)

// Mode is what the view currently shows.
type Mode string

const (
	ModePending  Mode = "pending"
	ModeMap      Mode = "map"
	ModeFallback Mode = "fallback"
)

// ViewSnapshot is a point-in-time description of the view.
type ViewSnapshot struct {
	Mode        Mode                `json:"mode"`
	MapState    State               `json:"map_state"`
	SDKState    mapsdk.State        `json:"sdk_state"`
	Container   string              `json:"container,omitempty"`
	Session     string              `json:"session,omitempty"`
	Events      int                 `json:"events"`
	Markers     []markers.MapMarker `json:"markers"`
	OpenBalloon string              `json:"open_balloon,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// View shows events on the map, or as a list when the map is unavailable.
type View struct {
	manager *Manager
	sdk     SDK
	onError func(string)
	logger  zerolog.Logger

	events    []models.EventRecord
	container mapsdk.Container
	mode      Mode
	lastErr   error
	reported  bool
}

// NewView creates a view over manager. onError may be nil.
func NewView(manager *Manager, onError func(string)) *View {
	v := &View{
		manager: manager,
		sdk:     manager.sdk,
		onError: onError,
		mode:    ModePending,
		logger:  logging.WithComponent("mapview.view"),
	}
	manager.OnReady(v.ready)
	manager.OnFailed(v.failed)
	return v
}

// Manager returns the underlying map manager.
func (v *View) Manager() *Manager { return v.manager }

// Mode returns the current display mode.
func (v *View) Mode() Mode { return v.mode }

// Err returns the failure that put the view into fallback mode.
func (v *View) Err() error { return v.lastErr }

// Events returns a copy of the current event list.
func (v *View) Events() []models.EventRecord {
	return models.CloneEvents(v.events)
}

// Mount shows the view in container c.
func (v *View) Mount(c mapsdk.Container) error {
	v.container = c
	if v.mode != ModeFallback {
		v.mode = ModePending
	}
	return v.manager.Mount(c)
}

// Unmount tears the map down. The event list is kept.
func (v *View) Unmount() {
	v.manager.Unmount()
	v.container = nil
	if v.mode == ModeMap {
		v.mode = ModePending
	}
}

// SetEvents replaces the event list. When the map is ready the markers are
// rebuilt; otherwise they are built once it becomes ready.
func (v *View) SetEvents(events []models.EventRecord) {
	v.events = models.CloneEvents(events)
	if v.manager.State() != Ready {
		return
	}
	if _, err := v.manager.RebuildMarkers(v.events); err != nil {
		v.logger.Warn().Err(err).Msg("marker rebuild failed")
	}
}

// Retry leaves fallback mode and mounts the map again. It reports false when
// the view is not in fallback mode or has no container.
func (v *View) Retry() bool {
	if v.mode != ModeFallback || v.container == nil {
		return false
	}
	if v.sdk.State() == mapsdk.Failed && !v.sdk.Retry() {
		return false
	}
	metrics.RecordSDKRetry("accepted")
	v.reported = false
	v.lastErr = nil
	v.mode = ModePending
	if err := v.manager.Mount(v.container); err != nil {
		v.logger.Warn().Err(err).Msg("remount failed")
		return false
	}
	return true
}

// Snapshot describes the view.
func (v *View) Snapshot() ViewSnapshot {
	snap := ViewSnapshot{
		Mode:     v.mode,
		MapState: v.manager.State(),
		SDKState: v.sdk.State(),
		Events:   len(v.events),
	}
	if v.container != nil {
		snap.Container = v.container.ID()
	}
	if w := v.manager.Widget(); w != nil {
		snap.Session = w.ID()
	}
	open := v.manager.Popups().Current()
	snap.OpenBalloon = open
	snap.Markers = v.manager.Markers().Snapshot(open)
	if v.lastErr != nil {
		snap.Error = v.lastErr.Error()
	}
	return snap
}

func (v *View) ready(mapsdk.Widget) {
	v.mode = ModeMap
	if _, err := v.manager.RebuildMarkers(v.events); err != nil {
		v.logger.Warn().Err(err).Msg("initial marker build failed")
	}
}

func (v *View) failed(err error) {
	v.mode = ModeFallback
	v.lastErr = err
	if v.reported {
		return
	}
	v.reported = true
	if v.onError != nil {
		v.onError(err.Error())
	}
}
