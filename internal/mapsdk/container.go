// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package mapsdk

import "sync"

// ElementContainer is a Container whose size is reported by display
// clients.
type ElementContainer struct {
	id string

	mu        sync.Mutex
	width     int
	height    int
	nextID    int
	listeners map[int]func()
}

// NewElementContainer creates a container with an initial size.
func NewElementContainer(id string, width, height int) *ElementContainer {
	return &ElementContainer{
		id:        id,
		width:     width,
		height:    height,
		listeners: make(map[int]func()),
	}
}

func (c *ElementContainer) ID() string { return c.id }

func (c *ElementContainer) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

func (c *ElementContainer) OnResize(fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Resize records a new size and notifies listeners when it changed.
// Non-positive dimensions are ignored.
func (c *ElementContainer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.mu.Lock()
	if width == c.width && height == c.height {
		c.mu.Unlock()
		return
	}
	c.width, c.height = width, height
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Listeners returns the number of registered resize listeners.
func (c *ElementContainer) Listeners() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}
