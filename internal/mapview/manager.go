// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package mapview

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/eventmap/internal/clock"
	"github.com/tomtom215/eventmap/internal/coords"
	"github.com/tomtom215/eventmap/internal/eventcard"
	"github.com/tomtom215/eventmap/internal/logging"
	"github.com/tomtom215/eventmap/internal/mapsdk"
	"github.com/tomtom215/eventmap/internal/markers"
	"github.com/tomtom215/eventmap/internal/metrics"
	"github.com/tomtom215/eventmap/internal/models"
	"github.com/tomtom215/eventmap/internal/popup"
	"github.com/tomtom215/eventmap/internal/uiloop"
)

var (
	// ErrNotReady is returned by collection operations while no widget is
	// live.
	ErrNotReady = errors.New("map is not ready")
	// ErrNoContainer is returned by Mount for a nil container.
	ErrNoContainer = errors.New("map container is required")
)

// State is the lifecycle state of a Manager.
type State int

const (
	Uninitialized State = iota
	Loading
	Ready
	Destroyed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Destroyed:
		return "destroyed"
	default:
		return "uninitialized"
	}
}

// MarshalText encodes the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// live reports whether the state holds or awaits a widget.
func (s State) live() bool {
	return s == Loading || s == Ready
}

// SDK is the loader surface the manager depends on.
type SDK interface {
	Request(fn func(mapsdk.State))
	Runtime() mapsdk.Runtime
	Err() error
	State() mapsdk.State
	Retry() bool
}

// Config configures a Manager.
type Config struct {
	// Owner names the manager in registry diagnostics.
	Owner   string
	Center  coords.LatLng
	Zoom    float64
	MaxZoom float64
	Markers markers.Options

	Cards    *eventcard.Formatter
	Clock    clock.Clock
	Dispatch uiloop.Dispatcher
	Registry *Registry
}

// Manager owns one map widget.
type Manager struct {
	sdk      SDK
	cfg      Config
	dispatch uiloop.Dispatcher
	registry *Registry
	markers  *markers.Controller
	popups   *popup.Manager
	logger   zerolog.Logger

	state     State
	gen       uint64
	container mapsdk.Container
	widget    mapsdk.Widget

	removeResize func()
	unsubscribe  func()

	onReady  func(mapsdk.Widget)
	onFailed func(error)
}

// NewManager creates an unmounted manager.
func NewManager(sdk SDK, cfg Config) *Manager {
	if cfg.Owner == "" {
		cfg.Owner = "mapview"
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewSystem()
	}
	if cfg.Dispatch == nil {
		cfg.Dispatch = uiloop.Inline{}
	}
	if cfg.Registry == nil {
		cfg.Registry = DefaultRegistry()
	}
	if cfg.Zoom <= 0 {
		cfg.Zoom = 10
	}

	m := &Manager{
		sdk:      sdk,
		cfg:      cfg,
		dispatch: cfg.Dispatch,
		registry: cfg.Registry,
		logger:   logging.WithComponent("mapview").With().Str("owner", cfg.Owner).Logger(),
	}
	m.markers = markers.NewController(markers.NewScheduler(cfg.Clock, cfg.Dispatch), cfg.Cards, cfg.Markers)
	m.markers.OnComplete(func(int) { m.Refit() })
	m.popups = popup.New(m)
	return m
}

// OnReady registers fn to run each time a widget becomes ready.
func (m *Manager) OnReady(fn func(mapsdk.Widget)) { m.onReady = fn }

// OnFailed registers fn to run when a mount ends without a widget.
func (m *Manager) OnFailed(fn func(error)) { m.onFailed = fn }

// State returns the lifecycle state.
func (m *Manager) State() State { return m.state }

// Widget returns the live widget, or nil.
func (m *Manager) Widget() mapsdk.Widget { return m.widget }

// Container returns the mounted container, or nil.
func (m *Manager) Container() mapsdk.Container { return m.container }

// Markers returns the marker controller.
func (m *Manager) Markers() *markers.Controller { return m.markers }

// Popups returns the popup manager.
func (m *Manager) Popups() *popup.Manager { return m.popups }

// Mount binds the manager to c and creates the widget once the SDK is ready.
// Mounting the container that is already live is a no-op; mounting another
// container unmounts first.
func (m *Manager) Mount(c mapsdk.Container) error {
	if c == nil {
		return ErrNoContainer
	}
	if m.state.live() && m.container != nil && m.container.ID() == c.ID() {
		return nil
	}
	if m.state.live() {
		m.Unmount()
	}

	m.gen++
	gen := m.gen
	m.container = c
	m.setState(Loading)
	m.logger.Debug().Str("container", c.ID()).Uint64("generation", gen).Msg("mounting map")

	// A state delivered before Request returns is handled here on the loop.
	// Posting it instead would block the loop on its own full queue.
	var (
		mu       sync.Mutex
		inline   = true
		early    mapsdk.State
		hasEarly bool
	)
	m.sdk.Request(func(s mapsdk.State) {
		mu.Lock()
		if inline {
			early, hasEarly = s, true
			mu.Unlock()
			return
		}
		mu.Unlock()
		m.dispatch.Post(func() { m.settled(gen, s) })
	})
	mu.Lock()
	inline = false
	mu.Unlock()
	if hasEarly {
		m.settled(gen, early)
	}
	return nil
}

// Unmount tears the widget down. It is safe to call with no instance and
// while a mount is still waiting on the SDK.
func (m *Manager) Unmount() {
	if m.state == Uninitialized && m.container == nil {
		return
	}
	if m.state == Destroyed {
		return
	}
	m.gen++

	m.markers.Reset()
	m.popups.CloseAll()
	if m.removeResize != nil {
		m.removeResize()
		m.removeResize = nil
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	if w := m.widget; w != nil {
		if !w.Destroyed() {
			w.Destroy()
			metrics.RecordMapDestroyed()
		}
		m.registry.Release(w)
		m.widget = nil
	}
	m.container = nil
	m.setState(Destroyed)
	m.logger.Debug().Msg("map unmounted")
}

// Refit re-fits the viewport to the container size. It reports false when
// no widget is ready.
func (m *Manager) Refit() bool {
	if m.state != Ready || m.widget == nil || m.container == nil {
		return false
	}
	w, h := m.container.Size()
	m.widget.FitViewport(w, h)
	metrics.RecordRefit()
	return true
}

// RebuildMarkers replaces the marker set with markers for events.
func (m *Manager) RebuildMarkers(events []models.EventRecord) (int, error) {
	if m.state != Ready || m.widget == nil {
		return 0, ErrNotReady
	}
	m.popups.CloseAll()
	return m.markers.Rebuild(events, m), nil
}

// AddMarker adds a marker to the live widget.
func (m *Manager) AddMarker(spec mapsdk.MarkerSpec) error {
	if m.widget == nil {
		return ErrNotReady
	}
	return m.widget.AddMarker(spec)
}

// RemoveMarker removes a marker and forgets its balloon.
func (m *Manager) RemoveMarker(id string) bool {
	if m.widget == nil {
		return false
	}
	m.popups.Forget(id)
	return m.widget.RemoveMarker(id)
}

// ClearMarkers removes every marker and forgets the open balloon.
func (m *Manager) ClearMarkers() int {
	if m.widget == nil {
		return 0
	}
	m.popups.Reset()
	return m.widget.ClearMarkers()
}

// AnimateMarker runs a style transition on a marker.
func (m *Manager) AnimateMarker(id string, from, to mapsdk.MarkerStyle, d time.Duration) error {
	if m.widget == nil {
		return ErrNotReady
	}
	return m.widget.AnimateMarker(id, from, to, d)
}

// OpenBalloon opens a marker balloon on the widget. Callers go through the
// popup manager so exclusivity holds.
func (m *Manager) OpenBalloon(id string) error {
	if m.widget == nil {
		return ErrNotReady
	}
	return m.widget.OpenBalloon(id)
}

// CloseBalloon closes a marker balloon on the widget.
func (m *Manager) CloseBalloon(id string) bool {
	if m.widget == nil {
		return false
	}
	return m.widget.CloseBalloon(id)
}

func (m *Manager) settled(gen uint64, s mapsdk.State) {
	if gen != m.gen || m.state != Loading {
		m.logger.Debug().Uint64("generation", gen).Msg("ignoring stale sdk continuation")
		return
	}
	if s != mapsdk.Ready {
		err := m.sdk.Err()
		if err == nil {
			err = fmt.Errorf("sdk settled as %s", s)
		}
		m.fail(mapsdk.FailureKind(err), err)
		return
	}

	rt := m.sdk.Runtime()
	if rt == nil {
		m.fail("create", &mapsdk.LoadError{Err: mapsdk.ErrNoRuntime})
		return
	}
	c := m.container
	w, err := m.registry.Claim(c.ID(), m.cfg.Owner, func() (mapsdk.Widget, error) {
		return rt.NewMap(c, mapsdk.MapOptions{
			Center:  m.cfg.Center,
			Zoom:    m.cfg.Zoom,
			MaxZoom: m.cfg.MaxZoom,
		})
	})
	if err != nil {
		m.fail("create", err)
		return
	}

	m.widget = w
	metrics.RecordMapCreated()
	m.popups.SetTarget(m)
	m.removeResize = c.OnResize(func() {
		m.dispatch.Post(func() {
			if gen == m.gen {
				m.Refit()
			}
		})
	})
	m.unsubscribe = w.Subscribe(func(ev mapsdk.Event) {
		m.dispatch.Post(func() {
			if gen == m.gen {
				m.route(ev)
			}
		})
	})
	m.setState(Ready)
	m.logger.Info().Str("container", c.ID()).Str("widget", w.ID()).Msg("map ready")

	m.Refit()
	if m.onReady != nil {
		m.onReady(w)
	}
}

func (m *Manager) fail(kind string, err error) {
	m.container = nil
	m.setState(Uninitialized)
	metrics.RecordMapError(kind)
	m.logger.Warn().Err(err).Str("kind", kind).Msg("map unavailable")
	if m.onFailed != nil {
		m.onFailed(err)
	}
}

// route turns a widget event into a popup message.
func (m *Manager) route(ev mapsdk.Event) {
	var msg popup.Message
	switch ev.Kind {
	case mapsdk.EventMarkerHover:
		msg = popup.Message{Kind: popup.MarkerHover, MarkerID: ev.MarkerID}
	case mapsdk.EventMarkerClick:
		msg = popup.Message{Kind: popup.MarkerClick, MarkerID: ev.MarkerID}
	case mapsdk.EventMapClick:
		msg = popup.Message{Kind: popup.MapClick}
	case mapsdk.EventBalloonClosed:
		msg = popup.Message{Kind: popup.BalloonClosed, MarkerID: ev.MarkerID}
	default:
		return
	}
	if msg.MarkerID != "" && msg.Kind != popup.BalloonClosed && !m.markers.IsInserted(msg.MarkerID) {
		return
	}
	if err := m.popups.Handle(msg); err != nil {
		m.logger.Debug().Err(err).Str("kind", string(ev.Kind)).Msg("popup message failed")
	}
}

func (m *Manager) setState(s State) {
	if m.state == s {
		return
	}
	m.state = s
	metrics.RecordMapState(s.String())
}
