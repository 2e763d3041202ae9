// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package markers

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/tomtom215/eventmap/internal/clock"
	"github.com/tomtom215/eventmap/internal/eventcard"
	"github.com/tomtom215/eventmap/internal/logging"
	"github.com/tomtom215/eventmap/internal/mapsdk"
	"github.com/tomtom215/eventmap/internal/models"
	"github.com/tomtom215/eventmap/internal/uiloop"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

var epoch = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func event(id, coord string) models.EventRecord {
	e := models.EventRecord{ID: id, Title: "Event " + id, StartTime: "2026-05-02T10:00:00Z"}
	if coord != "" {
		e.RawCoordinate = strPtr(coord)
	}
	return e
}

// recorder is a Collection that logs every call in order.
type recorder struct {
	present map[string]bool
	calls   []string
	added   []string
	anims   []mapsdk.MarkerStyle
}

func newRecorder() *recorder {
	return &recorder{present: make(map[string]bool)}
}

func (r *recorder) AddMarker(spec mapsdk.MarkerSpec) error {
	if r.present[spec.ID] {
		return mapsdk.ErrDuplicateMarker
	}
	r.present[spec.ID] = true
	r.added = append(r.added, spec.ID)
	r.calls = append(r.calls, "add:"+spec.ID)
	return nil
}

func (r *recorder) ClearMarkers() int {
	n := len(r.present)
	r.present = make(map[string]bool)
	r.calls = append(r.calls, "clear")
	return n
}

func (r *recorder) AnimateMarker(id string, from, to mapsdk.MarkerStyle, _ time.Duration) error {
	r.anims = append(r.anims, from, to)
	r.calls = append(r.calls, "animate:"+id)
	return nil
}

func newTestController() (*Controller, *clock.Fake) {
	clk := clock.NewFake(epoch)
	sched := NewScheduler(clk, uiloop.Inline{})
	return NewController(sched, eventcard.NewFormatter(eventcard.Options{}), DefaultOptions()), clk
}

func TestDelayFor(t *testing.T) {
	c, _ := newTestController()
	tests := []struct {
		index int
		want  time.Duration
	}{
		{0, 60 * time.Millisecond},
		{1, 120 * time.Millisecond},
		{9, 600 * time.Millisecond},
		{10, 60 * time.Millisecond},
		{23, 240 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := c.DelayFor(tt.index); got != tt.want {
			t.Errorf("DelayFor(%d) = %v, want %v", tt.index, got, tt.want)
		}
	}
}

func TestNewController_ZeroOptionsUseDefaults(t *testing.T) {
	sched := NewScheduler(clock.NewFake(epoch), uiloop.Inline{})
	c := NewController(sched, nil, Options{})
	for _, i := range []int{0, 1, 9, 10} {
		want := DefaultOptions().BaseDelay + time.Duration(i%10)*DefaultOptions().StepDelay
		if got := c.DelayFor(i); got != want {
			t.Errorf("DelayFor(%d) = %v, want %v", i, got, want)
		}
	}
	if got := c.HiddenStyle().OffsetY; got != -24 {
		t.Errorf("hidden offset = %v, want -24", got)
	}
}

func TestRebuild_SkipsEventsWithoutValidCoordinate(t *testing.T) {
	c, clk := newTestController()
	col := newRecorder()

	events := []models.EventRecord{
		event("a", "55.75, 37.61"),
		event("b", ""),
		event("c", "not a coordinate"),
		event("d", "59.93, 30.36"),
		event("e", "200, 10"),
		event("f", `{"lat":56.32,"lng":44.0}`),
	}
	if got := c.Rebuild(events, col); got != 3 {
		t.Fatalf("Rebuild scheduled %d markers, want 3", got)
	}

	snap := c.Snapshot("")
	wantIDs := []string{"a", "d", "f"}
	for i, id := range wantIDs {
		if snap[i].ID != id {
			t.Errorf("marker %d = %s, want %s", i, snap[i].ID, id)
		}
		if snap[i].AnimationDelay != c.DelayFor(i) {
			t.Errorf("marker %s delay = %v, want %v", id, snap[i].AnimationDelay, c.DelayFor(i))
		}
	}

	if len(col.added) != 0 {
		t.Fatalf("markers inserted before first delay: %v", col.added)
	}
	clk.Advance(time.Second)
	if len(col.added) != 3 {
		t.Fatalf("inserted %v, want 3 markers", col.added)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d", c.Pending())
	}
}

func TestRebuild_StaggeredEntrance(t *testing.T) {
	c, clk := newTestController()
	col := newRecorder()
	c.Rebuild([]models.EventRecord{
		event("a", "1, 1"),
		event("b", "2, 2"),
		event("c", "3, 3"),
	}, col)

	clk.Advance(60 * time.Millisecond)
	if !c.IsInserted("a") || c.IsInserted("b") {
		t.Fatalf("after 60ms inserted=%v", col.added)
	}
	clk.Advance(60 * time.Millisecond)
	if !c.IsInserted("b") || c.IsInserted("c") {
		t.Fatalf("after 120ms inserted=%v", col.added)
	}
	clk.Advance(60 * time.Millisecond)
	if !c.IsInserted("c") {
		t.Fatalf("after 180ms inserted=%v", col.added)
	}

	hidden := c.HiddenStyle()
	for i := 0; i < len(col.anims); i += 2 {
		if col.anims[i] != hidden || col.anims[i+1] != mapsdk.RestingStyle {
			t.Errorf("entrance %d animates %+v -> %+v", i/2, col.anims[i], col.anims[i+1])
		}
	}
	if hidden.Opacity != 0 || hidden.OffsetY >= 0 {
		t.Errorf("hidden style = %+v, want transparent and above resting", hidden)
	}
}

func TestRebuild_SharedDelaysKeepInputOrder(t *testing.T) {
	c, clk := newTestController()
	col := newRecorder()

	var events []models.EventRecord
	for i := 0; i < 12; i++ {
		events = append(events, event(fmt.Sprintf("m%d", i), fmt.Sprintf("%d, %d", i, i)))
	}
	c.Rebuild(events, col)
	clk.Advance(time.Second)

	want := []string{"m0", "m10", "m1", "m11", "m2", "m3", "m4", "m5", "m6", "m7", "m8", "m9"}
	if len(col.added) != len(want) {
		t.Fatalf("inserted %v", col.added)
	}
	for i := range want {
		if col.added[i] != want[i] {
			t.Fatalf("insertion order = %v, want %v", col.added, want)
		}
	}
}

func TestRebuild_ReplacesPreviousSet(t *testing.T) {
	c, clk := newTestController()
	col := newRecorder()

	c.Rebuild([]models.EventRecord{
		event("a", "1, 1"),
		event("b", "2, 2"),
		event("c", "3, 3"),
	}, col)
	clk.Advance(60 * time.Millisecond)
	if !c.IsInserted("a") {
		t.Fatal("a should be inserted after 60ms")
	}

	c.Rebuild([]models.EventRecord{
		event("c", "3, 3"),
		event("d", "4, 4"),
	}, col)
	if col.present["a"] {
		t.Error("a should be cleared by the second rebuild")
	}
	clk.Advance(time.Second)

	if col.present["b"] {
		t.Error("b from the first rebuild was inserted after replacement")
	}
	if !col.present["c"] || !col.present["d"] || len(col.present) != 2 {
		t.Errorf("present = %v, want exactly c and d", col.present)
	}
	if c.Has("a") || c.Has("b") {
		t.Error("controller still tracks markers of the first rebuild")
	}
	if clk.Pending() != 0 {
		t.Errorf("%d timers left behind", clk.Pending())
	}
}

func TestRebuild_PostedTaskSkippedAfterCancel(t *testing.T) {
	clk := clock.NewFake(epoch)
	var queued []func()
	dispatch := postFunc(func(fn func()) bool {
		queued = append(queued, fn)
		return true
	})
	c := NewController(NewScheduler(clk, dispatch), nil, DefaultOptions())
	col := newRecorder()

	c.Rebuild([]models.EventRecord{event("a", "1, 1")}, col)
	clk.Advance(time.Second)
	if len(queued) != 1 {
		t.Fatalf("queued %d tasks, want 1", len(queued))
	}

	// The timer already fired and its task sits in the loop queue.
	if n := c.Cancel(); n != 1 {
		t.Errorf("Cancel() = %d, want 1", n)
	}
	queued[0]()
	if len(col.added) != 0 {
		t.Errorf("cancelled task inserted %v", col.added)
	}
}

func TestRebuild_OnCompleteOncePerRebuild(t *testing.T) {
	c, clk := newTestController()
	col := newRecorder()

	var completions []int
	c.OnComplete(func(n int) { completions = append(completions, n) })

	c.Rebuild(nil, col)
	if len(completions) != 1 || completions[0] != 0 {
		t.Fatalf("empty rebuild completions = %v", completions)
	}

	c.Rebuild([]models.EventRecord{event("a", "1, 1"), event("b", "2, 2")}, col)
	clk.Advance(60 * time.Millisecond)
	if len(completions) != 1 {
		t.Fatalf("completed before all markers inserted: %v", completions)
	}
	clk.Advance(time.Second)
	if len(completions) != 2 || completions[1] != 2 {
		t.Fatalf("completions = %v, want [0 2]", completions)
	}
}

func TestRebuild_DuplicateIDsKeepFirst(t *testing.T) {
	c, clk := newTestController()
	col := newRecorder()

	n := c.Rebuild([]models.EventRecord{
		event("a", "1, 1"),
		event("a", "2, 2"),
		event("b", "3, 3"),
	}, col)
	if n != 2 {
		t.Fatalf("Rebuild = %d, want 2", n)
	}
	clk.Advance(time.Second)
	snap := c.Snapshot("")
	if snap[0].Coordinate.Lat != 1 {
		t.Errorf("kept coordinate %+v, want the first", snap[0].Coordinate)
	}
	if snap[1].AnimationDelay != c.DelayFor(1) {
		t.Errorf("b delay = %v, want retained index 1", snap[1].AnimationDelay)
	}
}

func TestSnapshot_MarksOpenBalloon(t *testing.T) {
	c, clk := newTestController()
	col := newRecorder()
	c.Rebuild([]models.EventRecord{event("a", "1, 1"), event("b", "2, 2")}, col)
	clk.Advance(time.Second)

	snap := c.Snapshot("b")
	if snap[0].BalloonOpen || !snap[1].BalloonOpen {
		t.Errorf("balloon flags = %v %v", snap[0].BalloonOpen, snap[1].BalloonOpen)
	}
	snap[0].ID = "mutated"
	if c.Snapshot("")[0].ID != "a" {
		t.Error("Snapshot leaked internal slice")
	}
}

func TestReset_ForgetsMarkers(t *testing.T) {
	c, clk := newTestController()
	col := newRecorder()
	c.Rebuild([]models.EventRecord{event("a", "1, 1")}, col)
	c.Reset()
	clk.Advance(time.Second)
	if len(col.added) != 0 || c.Len() != 0 {
		t.Errorf("after Reset added=%v len=%d", col.added, c.Len())
	}
}

func TestRebuild_DrivesScene(t *testing.T) {
	c, clk := newTestController()
	rt := mapsdk.NewSceneRuntime(nil)
	w, err := rt.NewMap(mapsdk.NewElementContainer("map", 800, 600), mapsdk.MapOptions{Zoom: 10})
	if err != nil {
		t.Fatal(err)
	}
	scene := w.(*mapsdk.Scene)

	c.Rebuild([]models.EventRecord{event("a", "55.75, 37.61"), event("b", "59.93, 30.36")}, scene)
	clk.Advance(time.Second)

	ids := scene.MarkerIDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("scene markers = %v", ids)
	}
	snap := scene.Snapshot()
	if snap.Markers[0].Style != mapsdk.RestingStyle {
		t.Errorf("marker style after entrance = %+v", snap.Markers[0].Style)
	}
	if snap.Markers[0].Balloon.Title != "Event a" {
		t.Errorf("balloon title = %q", snap.Markers[0].Balloon.Title)
	}
}

type postFunc func(fn func()) bool

func (f postFunc) Post(fn func()) bool { return f(fn) }
