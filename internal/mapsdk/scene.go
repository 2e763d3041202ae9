// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package mapsdk

import (
	"fmt"
	"sort"
	"sync"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/tomtom215/eventmap/internal/coords"
	"github.com/tomtom215/eventmap/internal/eventcard"
	"github.com/tomtom215/eventmap/internal/logging"
)

// Op types published by a Scene.
const (
	OpMapCreate     = "map.create"
	OpMapDestroy    = "map.destroy"
	OpMarkerAdd     = "marker.add"
	OpMarkerRemove  = "marker.remove"
	OpMarkerClear   = "marker.clear"
	OpMarkerAnimate = "marker.animate"
	OpBalloonOpen   = "balloon.open"
	OpBalloonClose  = "balloon.close"
	OpViewportFit   = "viewport.fit"
)

// Op is one scene mutation streamed to display clients. Seq increases by one
// per op within a session so clients can detect gaps and resync.
type Op struct {
	Type    string      `json:"type"`
	Session string      `json:"session"`
	Seq     uint64      `json:"seq"`
	Data    interface{} `json:"data,omitempty"`
}

// Publisher receives scene ops.
type Publisher interface {
	Publish(op Op)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(op Op)

// Publish calls f.
func (f PublisherFunc) Publish(op Op) { f(op) }

// MarkerSnapshot is the client view of a marker.
type MarkerSnapshot struct {
	ID       string         `json:"id"`
	Position coords.LatLng  `json:"position"`
	Geometry geom.Point     `json:"geometry"`
	Style    MarkerStyle    `json:"style"`
	Balloon  eventcard.Card `json:"balloon"`
}

// Viewport is the visible area of a scene.
type Viewport struct {
	Center coords.LatLng `json:"center"`
	Zoom   float64       `json:"zoom"`
	Width  int           `json:"width"`
	Height int           `json:"height"`
}

// SceneSnapshot is the complete client state of a scene. Clients that
// connect late, or detect a sequence gap, replace their state with it.
type SceneSnapshot struct {
	Session     string           `json:"session"`
	Container   string           `json:"container"`
	Seq         uint64           `json:"seq"`
	Viewport    Viewport         `json:"viewport"`
	Markers     []MarkerSnapshot `json:"markers"`
	OpenBalloon string           `json:"open_balloon,omitempty"`
}

type animateData struct {
	ID         string      `json:"id"`
	From       MarkerStyle `json:"from"`
	To         MarkerStyle `json:"to"`
	DurationMS int64       `json:"duration_ms"`
}

type idData struct {
	ID string `json:"id"`
}

type sceneMarker struct {
	snap  MarkerSnapshot
	order uint64
}

// Scene is a Widget whose state lives on the server and is mirrored by
// display clients through published ops.
type Scene struct {
	session   string
	container string
	pub       Publisher
	defaults  MapOptions
	onDestroy func(*Scene)

	mu         sync.Mutex
	seq        uint64
	viewport   Viewport
	markers    map[string]*sceneMarker
	addCounter uint64
	open       string
	destroyed  bool
	nextSub    int
	subs       map[int]func(Event)
}

func newScene(session string, c Container, opts MapOptions, pub Publisher, onDestroy func(*Scene)) *Scene {
	w, h := c.Size()
	s := &Scene{
		session:   session,
		container: c.ID(),
		pub:       pub,
		defaults:  opts,
		onDestroy: onDestroy,
		viewport:  Viewport{Center: opts.Center, Zoom: opts.Zoom, Width: w, Height: h},
		markers:   make(map[string]*sceneMarker),
		subs:      make(map[int]func(Event)),
	}
	s.mu.Lock()
	s.publishLocked(OpMapCreate, s.viewport)
	s.mu.Unlock()
	return s
}

// ID returns the scene session id.
func (s *Scene) ID() string { return s.session }

// Container returns the id of the container the scene is bound to.
func (s *Scene) Container() string { return s.container }

func (s *Scene) AddMarker(spec MarkerSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrDestroyed
	}
	if _, ok := s.markers[spec.ID]; ok {
		return fmt.Errorf("add marker %q: %w", spec.ID, ErrDuplicateMarker)
	}
	s.addCounter++
	m := &sceneMarker{
		order: s.addCounter,
		snap: MarkerSnapshot{
			ID:       spec.ID,
			Position: spec.Position,
			Geometry: spec.Position.Point(),
			Style:    spec.Style,
			Balloon:  spec.Balloon,
		},
	}
	s.markers[spec.ID] = m
	s.publishLocked(OpMarkerAdd, m.snap)
	return nil
}

func (s *Scene) RemoveMarker(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return false
	}
	if _, ok := s.markers[id]; !ok {
		return false
	}
	delete(s.markers, id)
	if s.open == id {
		s.open = ""
	}
	s.publishLocked(OpMarkerRemove, idData{ID: id})
	return true
}

func (s *Scene) ClearMarkers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return 0
	}
	n := len(s.markers)
	s.markers = make(map[string]*sceneMarker)
	s.open = ""
	s.publishLocked(OpMarkerClear, nil)
	return n
}

func (s *Scene) AnimateMarker(id string, from, to MarkerStyle, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrDestroyed
	}
	m, ok := s.markers[id]
	if !ok {
		return fmt.Errorf("animate marker %q: %w", id, ErrUnknownMarker)
	}
	// The server keeps the end state; clients interpolate.
	m.snap.Style = to
	s.publishLocked(OpMarkerAnimate, animateData{ID: id, From: from, To: to, DurationMS: d.Milliseconds()})
	return nil
}

func (s *Scene) OpenBalloon(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrDestroyed
	}
	if _, ok := s.markers[id]; !ok {
		return fmt.Errorf("open balloon %q: %w", id, ErrUnknownMarker)
	}
	s.open = id
	s.publishLocked(OpBalloonOpen, idData{ID: id})
	return nil
}

func (s *Scene) CloseBalloon(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed || s.open == "" || s.open != id {
		return false
	}
	s.open = ""
	s.publishLocked(OpBalloonClose, idData{ID: id})
	return true
}

// OpenBalloonID returns the marker whose balloon is open, or "".
func (s *Scene) OpenBalloonID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// FitViewport fits the viewport to the inserted markers, or to the initial
// center when there are none.
func (s *Scene) FitViewport(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}

	points := make([]coords.LatLng, 0, len(s.markers))
	for _, m := range s.markers {
		points = append(points, m.snap.Position)
	}
	vp := Viewport{Center: s.defaults.Center, Zoom: s.defaults.Zoom, Width: width, Height: height}
	if b, ok := coords.BoundsOf(points); ok {
		vp.Center = b.Center()
		vp.Zoom = coords.FitZoom(b, width, height, s.defaults.MaxZoom)
		if width <= 0 || height <= 0 {
			vp.Zoom = s.defaults.Zoom
		}
	}
	s.viewport = vp
	s.publishLocked(OpViewportFit, vp)
}

func (s *Scene) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Subscribers returns the number of registered listeners.
func (s *Scene) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Scene) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.markers = make(map[string]*sceneMarker)
	s.open = ""
	s.subs = make(map[int]func(Event))
	s.publishLocked(OpMapDestroy, nil)
	s.mu.Unlock()

	if s.onDestroy != nil {
		s.onDestroy(s)
	}
}

func (s *Scene) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// MarkerIDs returns the inserted markers in insertion order.
func (s *Scene) MarkerIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markerIDsLocked()
}

func (s *Scene) markerIDsLocked() []string {
	ms := make([]*sceneMarker, 0, len(s.markers))
	for _, m := range s.markers {
		ms = append(ms, m)
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].order < ms[j].order })
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.snap.ID
	}
	return ids
}

// Snapshot returns the full scene state.
func (s *Scene) Snapshot() SceneSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := SceneSnapshot{
		Session:     s.session,
		Container:   s.container,
		Seq:         s.seq,
		Viewport:    s.viewport,
		Markers:     make([]MarkerSnapshot, 0, len(s.markers)),
		OpenBalloon: s.open,
	}
	for _, id := range s.markerIDsLocked() {
		snap.Markers = append(snap.Markers, s.markers[id].snap)
	}
	return snap
}

// Dispatch delivers a client interaction to the scene's listeners. Events
// that reference unknown markers are dropped. A client-side balloon close
// updates the scene before listeners run.
func (s *Scene) Dispatch(ev Event) bool {
	s.mu.Lock()
	if s.destroyed || !ev.Kind.Valid() {
		s.mu.Unlock()
		return false
	}
	if ev.Kind != EventMapClick {
		if _, ok := s.markers[ev.MarkerID]; !ok {
			s.mu.Unlock()
			return false
		}
	}
	if ev.Kind == EventBalloonClosed && s.open == ev.MarkerID {
		s.open = ""
		s.publishLocked(OpBalloonClose, idData{ID: ev.MarkerID})
	}
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
	return true
}

// publishLocked emits an op. Caller holds s.mu so ops keep seq order.
func (s *Scene) publishLocked(typ string, data interface{}) {
	s.seq++
	if s.pub == nil {
		return
	}
	s.pub.Publish(Op{Type: typ, Session: s.session, Seq: s.seq, Data: data})
}

// SceneRuntime is the Runtime backed by server-side scenes.
type SceneRuntime struct {
	pub    Publisher
	mu     sync.Mutex
	scenes map[string]*Scene
}

// NewSceneRuntime creates a runtime publishing to pub. pub may be nil.
func NewSceneRuntime(pub Publisher) *SceneRuntime {
	return &SceneRuntime{pub: pub, scenes: make(map[string]*Scene)}
}

// NewMap creates a scene bound to c.
func (r *SceneRuntime) NewMap(c Container, opts MapOptions) (Widget, error) {
	if c == nil || c.ID() == "" {
		return nil, fmt.Errorf("new map: container id required")
	}
	session := logging.GenerateSessionID()
	s := newScene(session, c, opts, r.pub, r.forget)
	r.mu.Lock()
	r.scenes[session] = s
	r.mu.Unlock()
	return s, nil
}

func (r *SceneRuntime) forget(s *Scene) {
	r.mu.Lock()
	delete(r.scenes, s.session)
	r.mu.Unlock()
}

// Deliver routes a client event to the scene for session. It reports false
// for unknown sessions, which happens when a client still shows a scene that
// was already destroyed.
func (r *SceneRuntime) Deliver(session string, ev Event) bool {
	r.mu.Lock()
	s, ok := r.scenes[session]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return s.Dispatch(ev)
}

// Snapshots returns the state of every live scene.
func (r *SceneRuntime) Snapshots() []SceneSnapshot {
	r.mu.Lock()
	scenes := make([]*Scene, 0, len(r.scenes))
	for _, s := range r.scenes {
		scenes = append(scenes, s)
	}
	r.mu.Unlock()

	out := make([]SceneSnapshot, 0, len(scenes))
	for _, s := range scenes {
		out = append(out, s.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Session < out[j].Session })
	return out
}

// Live returns the number of scenes that have not been destroyed.
func (r *SceneRuntime) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scenes)
}

var _ Widget = (*Scene)(nil)
var _ Runtime = (*SceneRuntime)(nil)
