// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package mapview

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/eventmap/internal/mapsdk"
	"github.com/tomtom215/eventmap/internal/metrics"
	"github.com/tomtom215/eventmap/internal/uiloop"
)

func TestRegistry_DestroysOrphanOnSameContainer(t *testing.T) {
	rt := mapsdk.NewSceneRuntime(nil)
	reg := NewRegistry()
	container := mapsdk.NewElementContainer("event-map", 800, 600)
	create := func() (mapsdk.Widget, error) { return rt.NewMap(container, mapsdk.MapOptions{}) }

	orphan, err := reg.Claim("event-map", "first", create)
	if err != nil {
		t.Fatal(err)
	}
	before := testutil.ToFloat64(metrics.MapOrphansDestroyed)

	fresh, err := reg.Claim("event-map", "second", create)
	if err != nil {
		t.Fatalf("Claim returned error for orphan: %v", err)
	}
	if !orphan.Destroyed() {
		t.Error("orphan not destroyed")
	}
	if fresh.Destroyed() {
		t.Error("new widget destroyed")
	}
	if got := testutil.ToFloat64(metrics.MapOrphansDestroyed) - before; got != 1 {
		t.Errorf("orphans destroyed delta = %v, want 1", got)
	}
	if w, c, ok := reg.Current(); !ok || w != fresh || c != "event-map" {
		t.Errorf("slot = %v %q %v", w, c, ok)
	}
	if rt.Live() != 1 {
		t.Errorf("live scenes = %d, want 1", rt.Live())
	}
}

func TestRegistry_OtherContainerIsOverwrittenNotDestroyed(t *testing.T) {
	rt := mapsdk.NewSceneRuntime(nil)
	reg := NewRegistry()

	a, err := reg.Claim("left", "x", func() (mapsdk.Widget, error) {
		return rt.NewMap(mapsdk.NewElementContainer("left", 10, 10), mapsdk.MapOptions{})
	})
	if err != nil {
		t.Fatal(err)
	}
	b, err := reg.Claim("right", "y", func() (mapsdk.Widget, error) {
		return rt.NewMap(mapsdk.NewElementContainer("right", 10, 10), mapsdk.MapOptions{})
	})
	if err != nil {
		t.Fatal(err)
	}
	if a.Destroyed() {
		t.Error("widget of another container destroyed")
	}
	if w, _, _ := reg.Current(); w != b {
		t.Error("slot not overwritten")
	}
	if reg.Release(a) {
		t.Error("Release of a widget not in the slot reported true")
	}
	if !reg.Release(b) {
		t.Error("Release of the slot widget reported false")
	}
}

func TestRegistry_CreateError(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("boom")
	if _, err := reg.Claim("event-map", "x", func() (mapsdk.Widget, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped boom", err)
	}
	if _, _, ok := reg.Current(); ok {
		t.Error("slot set after failed create")
	}
}

// Two managers sharing a container model an abrupt remount that skipped
// Unmount: the second mount must destroy the first widget.
func TestManagers_AbruptRemountDestroysOrphan(t *testing.T) {
	rt := mapsdk.NewSceneRuntime(nil)
	loader := mapsdk.NewLoader(mapsdk.ReadySource(rt), mapsdk.LoaderOptions{})
	reg := NewRegistry()
	container := mapsdk.NewElementContainer("event-map", 800, 600)

	first := NewManager(loader, Config{Owner: "first", Dispatch: uiloop.Inline{}, Registry: reg})
	second := NewManager(loader, Config{Owner: "second", Dispatch: uiloop.Inline{}, Registry: reg})

	if err := first.Mount(container); err != nil {
		t.Fatal(err)
	}
	orphan := first.Widget()
	if err := second.Mount(container); err != nil {
		t.Fatal(err)
	}
	if !orphan.Destroyed() {
		t.Error("orphaned widget survived")
	}
	if rt.Live() != 1 {
		t.Errorf("live scenes = %d, want 1", rt.Live())
	}

	// The stale manager can still unmount safely.
	first.Unmount()
	if second.Widget().Destroyed() {
		t.Error("stale unmount destroyed the new widget")
	}
}
