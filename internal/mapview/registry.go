// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package mapview

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/eventmap/internal/logging"
	"github.com/tomtom215/eventmap/internal/mapsdk"
	"github.com/tomtom215/eventmap/internal/metrics"
)

// Registry holds at most one live widget reference. Claim destroys an
// orphaned widget bound to the same container before creating the new one.
type Registry struct {
	mu     sync.Mutex
	slot   *registryEntry
	logger zerolog.Logger
}

type registryEntry struct {
	container string
	owner     string
	widget    mapsdk.Widget
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{logger: logging.WithComponent("mapview.registry")}
}

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Claim creates a widget for container on behalf of owner and stores it in
// the slot. A live widget already bound to container is destroyed first.
// A widget bound to another container is dropped from the slot but left
// alone.
func (r *Registry) Claim(container, owner string, create func() (mapsdk.Widget, error)) (mapsdk.Widget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev := r.slot; prev != nil && !prev.widget.Destroyed() {
		if prev.container == container {
			r.logger.Warn().
				Str("container", container).
				Str("orphan_owner", prev.owner).
				Str("owner", owner).
				Str("widget", prev.widget.ID()).
				Msg("destroying orphaned map instance")
			prev.widget.Destroy()
			metrics.RecordOrphanDestroyed()
			metrics.RecordMapDestroyed()
		} else {
			r.logger.Debug().
				Str("container", prev.container).
				Str("widget", prev.widget.ID()).
				Msg("registry slot overwritten by another container")
		}
	}
	r.slot = nil

	w, err := create()
	if err != nil {
		return nil, fmt.Errorf("create map for container %q: %w", container, err)
	}
	r.slot = &registryEntry{container: container, owner: owner, widget: w}
	return w, nil
}

// Release empties the slot if it still holds w.
func (r *Registry) Release(w mapsdk.Widget) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slot == nil || r.slot.widget != w {
		return false
	}
	r.slot = nil
	return true
}

// Current returns the widget in the slot and the container it is bound to.
func (r *Registry) Current() (mapsdk.Widget, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slot == nil {
		return nil, "", false
	}
	return r.slot.widget, r.slot.container, true
}
