// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

// Package popup keeps at most one marker balloon open at a time.
//
// Marker and map interactions arrive as Messages. The Manager is the only
// component that opens or closes balloons, and it tracks the single open
// marker explicitly:
//
//	Closed --RequestOpen(id)--> Open(id)
//	Open(a) --RequestOpen(b)--> close a, Open(b)
//	Open(a) --MapClick / CloseAll--> Closed
//	Open(a) --NotifyClosed(a)--> Closed   (NotifyClosed(b) is ignored)
//
// A Manager is not safe for concurrent use; it runs on the UI loop.
package popup

import (
	"github.com/rs/zerolog"

	"github.com/tomtom215/eventmap/internal/logging"
	"github.com/tomtom215/eventmap/internal/metrics"
)

// Balloons is the widget surface the manager drives.
type Balloons interface {
	OpenBalloon(id string) error
	CloseBalloon(id string) bool
}

// State is the balloon state of one marker.
type State int

const (
	Closed State = iota
	Open
)

func (s State) String() string {
	if s == Open {
		return "open"
	}
	return "closed"
}

// Kind identifies an interaction message.
type Kind string

const (
	MarkerHover   Kind = "marker_hover"
	MarkerClick   Kind = "marker_click"
	MapClick      Kind = "map_click"
	BalloonClosed Kind = "balloon_closed"
)

// Message is an interaction routed to the manager.
type Message struct {
	Kind     Kind
	MarkerID string
}

// Close causes, used as metric labels.
const (
	causeReplaced = "replaced"
	causeMapClick = "map_click"
	causeCloseAll = "close_all"
	causeClient   = "client"
)

// Manager enforces balloon exclusivity.
type Manager struct {
	target Balloons
	open   string
	logger zerolog.Logger
}

// New creates a manager driving target. target may be nil until a widget
// exists; requests are then ignored.
func New(target Balloons) *Manager {
	return &Manager{
		target: target,
		logger: logging.WithComponent("popup"),
	}
}

// SetTarget switches to a new widget. Any tracked balloon belongs to the old
// widget and is forgotten without a close call.
func (m *Manager) SetTarget(target Balloons) {
	m.target = target
	m.open = ""
}

// Current returns the open marker id, or "".
func (m *Manager) Current() string {
	return m.open
}

// StateOf returns the balloon state of marker id.
func (m *Manager) StateOf(id string) State {
	if id != "" && id == m.open {
		return Open
	}
	return Closed
}

// RequestOpen opens the balloon of id, closing any other open balloon first.
// It is a no-op when id is already open. On error the tracked state stays
// Closed.
func (m *Manager) RequestOpen(id string) error {
	if m.target == nil || id == "" {
		return nil
	}
	if m.open == id {
		return nil
	}
	if m.open != "" {
		m.closeCurrent(causeReplaced)
	}
	if err := m.target.OpenBalloon(id); err != nil {
		m.logger.Debug().Err(err).Str("marker", id).Msg("balloon open rejected")
		return err
	}
	m.open = id
	metrics.RecordPopupOpen()
	return nil
}

// NotifyClosed records that the balloon of id was closed outside the
// manager. Notifications for any marker other than the tracked one are
// ignored; it reports whether the tracked reference was cleared.
func (m *Manager) NotifyClosed(id string) bool {
	if id == "" || id != m.open {
		return false
	}
	m.open = ""
	metrics.RecordPopupClose(causeClient)
	return true
}

// CloseAll closes the open balloon, if any.
func (m *Manager) CloseAll() {
	m.closeCurrent(causeCloseAll)
}

// Forget drops the tracked reference to id without a close call. Used when
// the marker itself has been removed from the widget.
func (m *Manager) Forget(id string) {
	if id != "" && id == m.open {
		m.open = ""
	}
}

// Reset forgets the tracked balloon. Used after the widget cleared all
// markers.
func (m *Manager) Reset() {
	m.open = ""
}

// Handle applies an interaction message.
func (m *Manager) Handle(msg Message) error {
	switch msg.Kind {
	case MarkerHover, MarkerClick:
		return m.RequestOpen(msg.MarkerID)
	case MapClick:
		m.closeCurrent(causeMapClick)
	case BalloonClosed:
		m.NotifyClosed(msg.MarkerID)
	default:
		m.logger.Debug().Str("kind", string(msg.Kind)).Msg("ignoring unknown popup message")
	}
	return nil
}

func (m *Manager) closeCurrent(cause string) {
	if m.open == "" {
		return
	}
	id := m.open
	m.open = ""
	if m.target != nil {
		m.target.CloseBalloon(id)
	}
	metrics.RecordPopupClose(cause)
}
