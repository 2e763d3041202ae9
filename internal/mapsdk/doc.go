// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

/*
Package mapsdk loads the external mapping SDK and defines the widget API the
map controllers program against.

# Loading

A Loader runs one load episode at a time against a Source:

	NotRequested -> Loading -> Ready
	                        -> Failed (load error or timeout)

The first EnsureLoaded or Request call starts the episode; every caller that
arrives while it is Loading waits on the same episode. The outcome is a race
between the Source's ready/fail callbacks and a timeout timer; whichever
settles first wins, the timer is stopped on success, and any later signal for
that episode is dropped. Settled states are cached. Retry moves Failed back to
NotRequested and is only offered to the user.

# Widgets

A Runtime creates Widgets bound to a Container. The controllers only use the
Widget collection operations (add, remove, clear, animate, balloon open and
close, viewport fit) and never reach into an implementation.

The production Runtime is SceneRuntime: every Widget is a Scene whose
operations are published as Ops to display clients, which replay them with
the vendor SDK bundle served by HTTPSource.

# Concurrency

Loader is safe for concurrent use; its callbacks run on whichever goroutine
settled the episode. Scenes are safe for concurrent use, but their listeners
are expected to hop onto the UI loop before touching controller state.
*/
package mapsdk
