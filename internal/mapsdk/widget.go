// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package mapsdk

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/eventmap/internal/coords"
	"github.com/tomtom215/eventmap/internal/eventcard"
)

// Widget errors.
var (
	ErrDestroyed       = errors.New("map widget destroyed")
	ErrUnknownMarker   = errors.New("unknown marker")
	ErrDuplicateMarker = errors.New("marker already added")
)

// Callbacks receive the outcome of a Source load. Exactly one of them should
// be called, once; extra calls are ignored by the Loader.
type Callbacks struct {
	Ready func(Runtime)
	Fail  func(error)
}

// Source fetches and initializes the SDK. Load must not block: it starts the
// work and reports through cb. ctx is cancelled once the episode settles.
type Source interface {
	Load(ctx context.Context, cb Callbacks)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, cb Callbacks)

// Load calls f.
func (f SourceFunc) Load(ctx context.Context, cb Callbacks) {
	f(ctx, cb)
}

// Runtime is an initialized SDK.
type Runtime interface {
	NewMap(c Container, opts MapOptions) (Widget, error)
}

// Container is the element a map widget is bound to.
type Container interface {
	// ID identifies the container; the instance registry is keyed by it.
	ID() string
	// Size returns the current rendered size in pixels.
	Size() (width, height int)
	// OnResize registers fn and returns a function that removes it.
	OnResize(fn func()) (remove func())
}

// MapOptions configures a new widget.
type MapOptions struct {
	Center  coords.LatLng
	Zoom    float64
	MaxZoom float64
}

// MarkerStyle is the visual state of a marker. OffsetY is in pixels, negative
// is above the resting position.
type MarkerStyle struct {
	Opacity float64 `json:"opacity"`
	OffsetY float64 `json:"offset_y"`
}

// RestingStyle is a fully visible marker at its coordinate.
var RestingStyle = MarkerStyle{Opacity: 1, OffsetY: 0}

// MarkerSpec describes a marker to add.
type MarkerSpec struct {
	ID       string
	Position coords.LatLng
	Style    MarkerStyle
	Balloon  eventcard.Card
}

// EventKind identifies a widget interaction.
type EventKind string

const (
	EventMarkerHover   EventKind = "marker_hover"
	EventMarkerClick   EventKind = "marker_click"
	EventMapClick      EventKind = "map_click"
	EventBalloonClosed EventKind = "balloon_closed"
)

// Valid reports whether k is a known kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventMarkerHover, EventMarkerClick, EventMapClick, EventBalloonClosed:
		return true
	}
	return false
}

// Event is a user interaction reported by a widget.
type Event struct {
	Kind     EventKind `json:"kind"`
	MarkerID string    `json:"marker_id,omitempty"`
}

// Widget is a live map instance.
type Widget interface {
	ID() string
	AddMarker(spec MarkerSpec) error
	RemoveMarker(id string) bool
	ClearMarkers() int
	AnimateMarker(id string, from, to MarkerStyle, d time.Duration) error
	OpenBalloon(id string) error
	CloseBalloon(id string) bool
	// FitViewport re-fits the viewport to a container of the given size.
	FitViewport(width, height int)
	// Subscribe registers fn for interaction events and returns a function
	// that removes it.
	Subscribe(fn func(Event)) (unsubscribe func())
	// Destroy releases the widget. Every later call fails with ErrDestroyed
	// or is a no-op.
	Destroy()
	Destroyed() bool
}
