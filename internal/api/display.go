// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package api

import (
	"context"
	"time"

	"github.com/tomtom215/eventmap/internal/logging"
	"github.com/tomtom215/eventmap/internal/mapsdk"
	"github.com/tomtom215/eventmap/internal/mapview"
	"github.com/tomtom215/eventmap/internal/uiloop"
	ws "github.com/tomtom215/eventmap/internal/websocket"
)

// DisplaySnapshot is the full state a display client starts from.
type DisplaySnapshot struct {
	View   mapview.ViewSnapshot   `json:"view"`
	Scenes []mapsdk.SceneSnapshot `json:"scenes"`
}

// Display connects websocket clients to the scene runtime and the map
// container. It implements websocket.Handler.
type Display struct {
	runtime   *mapsdk.SceneRuntime
	container *mapsdk.ElementContainer
	loop      uiloop.Runner
	view      *mapview.View
	timeout   time.Duration
}

// NewDisplay creates a display adapter. view is only read on loop.
func NewDisplay(runtime *mapsdk.SceneRuntime, container *mapsdk.ElementContainer, loop uiloop.Runner, view *mapview.View) *Display {
	return &Display{
		runtime:   runtime,
		container: container,
		loop:      loop,
		view:      view,
		timeout:   DefaultLoopTimeout,
	}
}

// HandleEvent forwards a client interaction to its scene.
func (d *Display) HandleEvent(session string, ev mapsdk.Event) bool {
	return d.runtime.Deliver(session, ev)
}

// HandleResize applies a size reported by a client to the map container.
func (d *Display) HandleResize(container string, width, height int) bool {
	if d.container == nil || container != d.container.ID() {
		return false
	}
	d.container.Resize(width, height)
	return true
}

// ViewSnapshot reads the view state on the loop.
func (d *Display) ViewSnapshot(ctx context.Context) (mapview.ViewSnapshot, error) {
	return doValue(ctx, d.loop, d.view.Snapshot)
}

// Snapshot returns the view and every live scene. When the loop does not
// answer in time the view part is left empty.
func (d *Display) Snapshot() interface{} {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	snap := DisplaySnapshot{}
	view, err := d.ViewSnapshot(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("display snapshot without view state")
	} else {
		snap.View = view
	}
	snap.Scenes = d.runtime.Snapshots()
	return snap
}

var _ ws.Handler = (*Display)(nil)
