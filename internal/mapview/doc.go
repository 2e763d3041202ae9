// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

/*
Package mapview owns the lifecycle of the map widget and the view that
switches between the map and the fallback list.

# Components

  - Registry: process-wide single slot holding the live widget. Creating a
    widget for a container destroys any orphaned instance still bound to the
    same container.
  - Manager: mount/unmount state machine for one widget. It waits on the SDK
    loader, creates the widget through the Registry, routes widget events to
    the popup manager and exposes the marker collection operations.
  - View: the top-level component. It holds the current event list, chooses
    between map and fallback mode, and reports SDK failures through an
    onError callback at most once per failure episode.

# State machine

	Uninitialized --Mount--> Loading --sdk ready--> Ready
	                           |                      |
	                           +--sdk failed--> Uninitialized (OnFailed)
	any --Unmount--> Destroyed --Mount--> Loading

# Threading

Manager and View are not safe for concurrent use. They run on a
uiloop.Loop; loader continuations, resize notifications and widget events
are posted back onto the loop and checked against a generation counter so
callbacks from a previous mount are ignored.
*/
package mapview
