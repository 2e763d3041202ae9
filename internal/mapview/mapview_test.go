// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package mapview

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/eventmap/internal/clock"
	"github.com/tomtom215/eventmap/internal/coords"
	"github.com/tomtom215/eventmap/internal/fallback"
	"github.com/tomtom215/eventmap/internal/logging"
	"github.com/tomtom215/eventmap/internal/mapsdk"
	"github.com/tomtom215/eventmap/internal/metrics"
	"github.com/tomtom215/eventmap/internal/models"
	"github.com/tomtom215/eventmap/internal/uiloop"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

var (
	epoch  = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	moscow = coords.LatLng{Lat: 55.7558, Lng: 37.6176}
)

func strPtr(s string) *string { return &s }

// fiveEvents has three events with usable coordinates.
func fiveEvents() []models.EventRecord {
	return []models.EventRecord{
		{ID: "a", Title: "Zoo Day", StartTime: "2026-05-02T10:00:00Z", RawCoordinate: strPtr("55.7640, 37.5780")},
		{ID: "b", Title: "Story Hour", StartTime: "2026-05-02T12:00:00Z"},
		{ID: "c", Title: "Kite Festival", StartTime: "2026-05-03T09:00:00Z", RawCoordinate: strPtr(`{"lat":55.7290,"lng":37.6010}`)},
		{ID: "d", Title: "Lego Workshop", StartTime: "2026-05-03", RawCoordinate: strPtr("somewhere")},
		{ID: "e", Title: "Planetarium", StartTime: "2026-05-04T18:00:00Z", RawCoordinate: strPtr("[55.7614, 37.5836]")},
	}
}

// controlledSource records load calls and lets the test settle each one.
type controlledSource struct {
	calls []mapsdk.Callbacks
}

func (s *controlledSource) Load(_ context.Context, cb mapsdk.Callbacks) {
	s.calls = append(s.calls, cb)
}

func (s *controlledSource) last() mapsdk.Callbacks {
	return s.calls[len(s.calls)-1]
}

type harness struct {
	clk       *clock.Fake
	rt        *mapsdk.SceneRuntime
	loader    *mapsdk.Loader
	registry  *Registry
	manager   *Manager
	view      *View
	container *mapsdk.ElementContainer
	errs      []string
}

func newHarness(t *testing.T, source mapsdk.Source, rt *mapsdk.SceneRuntime) *harness {
	t.Helper()
	h := &harness{
		clk:       clock.NewFake(epoch),
		rt:        rt,
		registry:  NewRegistry(),
		container: mapsdk.NewElementContainer("event-map", 800, 600),
	}
	h.loader = mapsdk.NewLoader(source, mapsdk.LoaderOptions{Clock: h.clk})
	h.manager = NewManager(h.loader, Config{
		Owner:    t.Name(),
		Center:   moscow,
		Zoom:     11,
		Clock:    h.clk,
		Dispatch: uiloop.Inline{},
		Registry: h.registry,
	})
	h.view = NewView(h.manager, func(msg string) { h.errs = append(h.errs, msg) })
	return h
}

func newReadyHarness(t *testing.T) *harness {
	t.Helper()
	rt := mapsdk.NewSceneRuntime(nil)
	return newHarness(t, mapsdk.ReadySource(rt), rt)
}

func (h *harness) scene(t *testing.T) *mapsdk.Scene {
	t.Helper()
	w := h.manager.Widget()
	if w == nil {
		t.Fatal("no live widget")
	}
	return w.(*mapsdk.Scene)
}

func TestView_PlotsEventsWithCoordinates(t *testing.T) {
	h := newReadyHarness(t)
	h.view.SetEvents(fiveEvents())
	if err := h.view.Mount(h.container); err != nil {
		t.Fatalf("Mount: %v", err)
	}

	if h.view.Mode() != ModeMap || h.manager.State() != Ready {
		t.Fatalf("mode=%s state=%s, want map/ready", h.view.Mode(), h.manager.State())
	}
	h.clk.Advance(time.Second)

	ids := h.scene(t).MarkerIDs()
	want := []string{"a", "c", "e"}
	if len(ids) != len(want) {
		t.Fatalf("markers = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("markers = %v, want %v", ids, want)
		}
	}
	if len(h.errs) != 0 {
		t.Errorf("onError called for coordinate failures: %v", h.errs)
	}
	snap := h.view.Snapshot()
	if snap.Events != 5 || len(snap.Markers) != 3 {
		t.Errorf("snapshot events=%d markers=%d", snap.Events, len(snap.Markers))
	}
}

func TestView_EmptyEventsIsNotAnError(t *testing.T) {
	h := newReadyHarness(t)
	if err := h.view.Mount(h.container); err != nil {
		t.Fatal(err)
	}
	h.clk.Advance(time.Second)
	if h.view.Mode() != ModeMap {
		t.Errorf("mode = %s", h.view.Mode())
	}
	if n := len(h.scene(t).MarkerIDs()); n != 0 {
		t.Errorf("%d markers on empty input", n)
	}
	if len(h.errs) != 0 {
		t.Errorf("errors = %v", h.errs)
	}
}

func TestView_TimeoutFallsBackToList(t *testing.T) {
	rt := mapsdk.NewSceneRuntime(nil)
	src := &controlledSource{}
	h := newHarness(t, src, rt)
	h.view.SetEvents(fiveEvents())
	if err := h.view.Mount(h.container); err != nil {
		t.Fatal(err)
	}
	if h.manager.State() != Loading {
		t.Fatalf("state = %s, want loading", h.manager.State())
	}

	h.clk.Advance(mapsdk.DefaultLoadTimeout)

	if h.view.Mode() != ModeFallback {
		t.Fatalf("mode = %s, want fallback", h.view.Mode())
	}
	if len(h.errs) != 1 {
		t.Fatalf("onError calls = %d, want 1", len(h.errs))
	}
	var te *mapsdk.TimeoutError
	if !errors.As(h.view.Err(), &te) {
		t.Errorf("view error = %v, want TimeoutError", h.view.Err())
	}
	if items := fallback.New(nil, fallback.Options{}).Items(h.view.Events()); len(items) != 5 {
		t.Errorf("fallback items = %d, want 5", len(items))
	}

	// A ready signal after the timeout must not create a map.
	src.last().Ready(rt)
	if h.loader.State() != mapsdk.Failed || h.manager.Widget() != nil || rt.Live() != 0 {
		t.Errorf("late ready resurrected the map: sdk=%s live=%d", h.loader.State(), rt.Live())
	}
	if h.view.Mode() != ModeFallback {
		t.Errorf("mode = %s after late ready", h.view.Mode())
	}
}

func TestView_OnErrorOncePerEpisode(t *testing.T) {
	rt := mapsdk.NewSceneRuntime(nil)
	src := &controlledSource{}
	h := newHarness(t, src, rt)

	if err := h.view.Mount(h.container); err != nil {
		t.Fatal(err)
	}
	src.last().Fail(errors.New("network unreachable"))
	if len(h.errs) != 1 {
		t.Fatalf("onError calls = %d, want 1", len(h.errs))
	}

	// Mounting again in the same episode reuses the cached failure.
	if err := h.view.Mount(mapsdk.NewElementContainer("other", 400, 300)); err != nil {
		t.Fatal(err)
	}
	if len(h.errs) != 1 {
		t.Fatalf("onError repeated within one episode: %v", h.errs)
	}

	// Retry starts a new episode; a second failure is reported again.
	if !h.view.Retry() {
		t.Fatal("Retry rejected in fallback mode")
	}
	if len(src.calls) != 2 {
		t.Fatalf("source loads = %d, want 2", len(src.calls))
	}
	src.last().Fail(errors.New("still unreachable"))
	if len(h.errs) != 2 {
		t.Fatalf("onError calls = %d, want 2", len(h.errs))
	}
}

func TestView_RetrySucceeds(t *testing.T) {
	rt := mapsdk.NewSceneRuntime(nil)
	src := &controlledSource{}
	h := newHarness(t, src, rt)
	h.view.SetEvents(fiveEvents())

	if err := h.view.Mount(h.container); err != nil {
		t.Fatal(err)
	}
	h.clk.Advance(mapsdk.DefaultLoadTimeout)
	if h.view.Mode() != ModeFallback {
		t.Fatalf("mode = %s", h.view.Mode())
	}

	if !h.view.Retry() {
		t.Fatal("Retry rejected")
	}
	if h.view.Mode() != ModePending {
		t.Errorf("mode after Retry = %s, want pending", h.view.Mode())
	}
	src.last().Ready(rt)
	h.clk.Advance(time.Second)

	if h.view.Mode() != ModeMap {
		t.Fatalf("mode = %s, want map", h.view.Mode())
	}
	if n := len(h.scene(t).MarkerIDs()); n != 3 {
		t.Errorf("markers = %d, want 3", n)
	}
	if h.view.Retry() {
		t.Error("Retry accepted outside fallback mode")
	}
}

func TestView_SetEventsWhileReadyReplacesMarkers(t *testing.T) {
	h := newReadyHarness(t)
	h.view.SetEvents(fiveEvents())
	if err := h.view.Mount(h.container); err != nil {
		t.Fatal(err)
	}
	h.clk.Advance(60 * time.Millisecond)

	h.view.SetEvents([]models.EventRecord{
		{ID: "z", Title: "Circus", StartTime: "2026-05-05", RawCoordinate: strPtr("55.75, 37.62")},
	})
	h.clk.Advance(time.Second)

	ids := h.scene(t).MarkerIDs()
	if len(ids) != 1 || ids[0] != "z" {
		t.Errorf("markers = %v, want [z]", ids)
	}
}

func TestManager_MountSameContainerIsNoop(t *testing.T) {
	h := newReadyHarness(t)
	if err := h.manager.Mount(h.container); err != nil {
		t.Fatal(err)
	}
	first := h.manager.Widget()
	if err := h.manager.Mount(h.container); err != nil {
		t.Fatal(err)
	}
	if h.manager.Widget() != first || h.rt.Live() != 1 {
		t.Errorf("second mount replaced widget, live=%d", h.rt.Live())
	}
	if h.loader.Attempts() != 1 {
		t.Errorf("loader attempts = %d", h.loader.Attempts())
	}
	if h.container.Listeners() != 1 {
		t.Errorf("resize listeners = %d, want 1", h.container.Listeners())
	}
}

func TestManager_MountOtherContainerUnmountsFirst(t *testing.T) {
	h := newReadyHarness(t)
	if err := h.manager.Mount(h.container); err != nil {
		t.Fatal(err)
	}
	first := h.manager.Widget()
	other := mapsdk.NewElementContainer("side-map", 300, 300)
	if err := h.manager.Mount(other); err != nil {
		t.Fatal(err)
	}
	if !first.Destroyed() {
		t.Error("widget of the previous container was not destroyed")
	}
	if h.container.Listeners() != 0 || other.Listeners() != 1 {
		t.Errorf("listeners old=%d new=%d", h.container.Listeners(), other.Listeners())
	}
	if h.rt.Live() != 1 {
		t.Errorf("live scenes = %d", h.rt.Live())
	}
}

func TestManager_UnmountMidAnimation(t *testing.T) {
	h := newReadyHarness(t)
	h.view.SetEvents(fiveEvents())
	if err := h.view.Mount(h.container); err != nil {
		t.Fatal(err)
	}
	h.clk.Advance(60 * time.Millisecond)
	scene := h.scene(t)
	if err := h.manager.Popups().RequestOpen("a"); err != nil {
		t.Fatal(err)
	}

	h.view.Unmount()
	h.clk.Advance(time.Second)

	if h.manager.State() != Destroyed {
		t.Errorf("state = %s", h.manager.State())
	}
	if !scene.Destroyed() || h.rt.Live() != 0 {
		t.Error("widget not destroyed")
	}
	if h.container.Listeners() != 0 {
		t.Errorf("resize listeners left: %d", h.container.Listeners())
	}
	if h.manager.Popups().Current() != "" {
		t.Error("popup reference survived unmount")
	}
	if h.manager.Markers().Pending() != 0 {
		t.Errorf("pending insertions = %d", h.manager.Markers().Pending())
	}
	if _, _, ok := h.registry.Current(); ok {
		t.Error("registry slot still held")
	}
	if h.clk.Pending() != 0 {
		t.Errorf("timers left: %d", h.clk.Pending())
	}

	// Unmount with no instance is a no-op.
	h.view.Unmount()
}

func TestManager_UnmountWhileLoading(t *testing.T) {
	rt := mapsdk.NewSceneRuntime(nil)
	src := &controlledSource{}
	h := newHarness(t, src, rt)

	if err := h.manager.Mount(h.container); err != nil {
		t.Fatal(err)
	}
	h.manager.Unmount()
	src.last().Ready(rt)

	if h.manager.State() != Destroyed {
		t.Errorf("state = %s, want destroyed", h.manager.State())
	}
	if rt.Live() != 0 || h.manager.Widget() != nil {
		t.Error("stale continuation created a widget")
	}
}

func TestManager_RemountRecreatesWidget(t *testing.T) {
	h := newReadyHarness(t)
	if err := h.manager.Mount(h.container); err != nil {
		t.Fatal(err)
	}
	first := h.manager.Widget()
	h.manager.Unmount()
	if err := h.manager.Mount(h.container); err != nil {
		t.Fatal(err)
	}
	second := h.manager.Widget()
	if second == nil || second == first || second.ID() == first.ID() {
		t.Fatal("remount reused the destroyed widget")
	}
	if second.Destroyed() {
		t.Error("new widget already destroyed")
	}
}

func TestManager_RefitOnResize(t *testing.T) {
	h := newReadyHarness(t)
	if err := h.manager.Mount(h.container); err != nil {
		t.Fatal(err)
	}
	before := testutil.ToFloat64(metrics.MapRefits)
	h.container.Resize(1024, 768)

	vp := h.scene(t).Snapshot().Viewport
	if vp.Width != 1024 || vp.Height != 768 {
		t.Errorf("viewport = %dx%d, want 1024x768", vp.Width, vp.Height)
	}
	if got := testutil.ToFloat64(metrics.MapRefits) - before; got != 1 {
		t.Errorf("refits delta = %v, want 1", got)
	}
}

func TestManager_RefitAndRebuildWhenNotReady(t *testing.T) {
	h := newReadyHarness(t)
	if h.manager.Refit() {
		t.Error("Refit reported success with no widget")
	}
	if _, err := h.manager.RebuildMarkers(fiveEvents()); !errors.Is(err, ErrNotReady) {
		t.Errorf("RebuildMarkers error = %v, want ErrNotReady", err)
	}
	if err := h.manager.Mount(nil); !errors.Is(err, ErrNoContainer) {
		t.Errorf("Mount(nil) error = %v", err)
	}
}

func TestManager_RoutesInteractionsToPopups(t *testing.T) {
	h := newReadyHarness(t)
	h.view.SetEvents(fiveEvents())
	if err := h.view.Mount(h.container); err != nil {
		t.Fatal(err)
	}
	h.clk.Advance(60 * time.Millisecond)
	scene := h.scene(t)
	session := scene.ID()

	// Only "a" is inserted so far; "c" is not on the map yet.
	h.rt.Deliver(session, mapsdk.Event{Kind: mapsdk.EventMarkerHover, MarkerID: "c"})
	if h.manager.Popups().Current() != "" {
		t.Fatal("balloon opened for a marker that is not on the map")
	}

	h.clk.Advance(time.Second)
	h.rt.Deliver(session, mapsdk.Event{Kind: mapsdk.EventMarkerClick, MarkerID: "a"})
	if scene.OpenBalloonID() != "a" {
		t.Fatalf("open balloon = %q, want a", scene.OpenBalloonID())
	}
	h.rt.Deliver(session, mapsdk.Event{Kind: mapsdk.EventMarkerHover, MarkerID: "c"})
	if scene.OpenBalloonID() != "c" || h.manager.Popups().Current() != "c" {
		t.Fatalf("open balloon = %q, want c", scene.OpenBalloonID())
	}
	if snap := h.view.Snapshot(); snap.OpenBalloon != "c" || !snap.Markers[1].BalloonOpen {
		t.Errorf("snapshot open balloon = %q", snap.OpenBalloon)
	}

	h.rt.Deliver(session, mapsdk.Event{Kind: mapsdk.EventBalloonClosed, MarkerID: "a"})
	if h.manager.Popups().Current() != "c" {
		t.Error("close of a non-tracked balloon cleared the tracked one")
	}
	h.rt.Deliver(session, mapsdk.Event{Kind: mapsdk.EventMapClick})
	if scene.OpenBalloonID() != "" || h.manager.Popups().Current() != "" {
		t.Error("map click did not close the balloon")
	}
}

func TestManager_ZeroMarkerOptionsStagger(t *testing.T) {
	h := newReadyHarness(t)
	h.view.SetEvents(fiveEvents())
	if err := h.view.Mount(h.container); err != nil {
		t.Fatal(err)
	}

	h.clk.Advance(60 * time.Millisecond)
	if ids := h.scene(t).MarkerIDs(); len(ids) != 1 || ids[0] != "a" {
		t.Fatalf("markers after 60ms = %v, want [a]", ids)
	}
	h.clk.Advance(60 * time.Millisecond)
	if ids := h.scene(t).MarkerIDs(); len(ids) != 2 {
		t.Fatalf("markers after 120ms = %v, want 2", ids)
	}
	h.clk.Advance(60 * time.Millisecond)
	if got := h.manager.Markers().Pending(); got != 0 {
		t.Errorf("pending after 180ms = %d", got)
	}
}

func TestManager_MountOnFullLoopWithSettledSDK(t *testing.T) {
	rt := mapsdk.NewSceneRuntime(nil)
	loader := mapsdk.NewLoader(mapsdk.ReadySource(rt), mapsdk.LoaderOptions{Clock: clock.NewFake(epoch)})
	loader.Request(nil)
	if loader.State() != mapsdk.Ready {
		t.Fatalf("loader state = %s, want ready", loader.State())
	}

	loop := uiloop.New("mount-test", 1)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = loop.Serve(ctx) }()

	manager := NewManager(loader, Config{
		Owner:    t.Name(),
		Center:   moscow,
		Clock:    clock.NewFake(epoch),
		Dispatch: loop,
		Registry: NewRegistry(),
	})
	container := mapsdk.NewElementContainer("event-map", 800, 600)

	doCtx, doCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer doCancel()
	var (
		state    State
		mountErr error
	)
	err := loop.Do(doCtx, func() {
		// Occupy the only queue slot so any Post from here would block.
		loop.Post(func() {})
		mountErr = manager.Mount(container)
		state = manager.State()
	})
	if err != nil {
		t.Fatalf("loop did not finish the mount: %v", err)
	}
	if mountErr != nil {
		t.Fatalf("Mount: %v", mountErr)
	}
	if state != Ready {
		t.Errorf("state = %s, want ready", state)
	}
}

func TestManager_RebuildClosesOpenBalloon(t *testing.T) {
	h := newReadyHarness(t)
	h.view.SetEvents(fiveEvents())
	if err := h.view.Mount(h.container); err != nil {
		t.Fatal(err)
	}
	h.clk.Advance(time.Second)
	if err := h.manager.Popups().RequestOpen("e"); err != nil {
		t.Fatal(err)
	}
	h.view.SetEvents(fiveEvents())
	if h.manager.Popups().Current() != "" || h.scene(t).OpenBalloonID() != "" {
		t.Error("balloon survived marker rebuild")
	}
}

type brokenRuntime struct{}

func (brokenRuntime) NewMap(mapsdk.Container, mapsdk.MapOptions) (mapsdk.Widget, error) {
	return nil, errors.New("webgl unavailable")
}

func TestManager_CreateFailureFallsBack(t *testing.T) {
	h := newHarness(t, mapsdk.ReadySource(brokenRuntime{}), nil)
	if err := h.view.Mount(h.container); err != nil {
		t.Fatal(err)
	}
	if h.view.Mode() != ModeFallback || h.manager.State() != Uninitialized {
		t.Errorf("mode=%s state=%s", h.view.Mode(), h.manager.State())
	}
	if len(h.errs) != 1 {
		t.Errorf("onError calls = %d", len(h.errs))
	}
	if h.container.Listeners() != 0 {
		t.Error("resize listener registered without a widget")
	}
}
