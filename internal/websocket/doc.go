// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

/*
Package websocket mirrors server-side map scenes to display clients.

The Hub implements mapsdk.Publisher: every scene mutation (map created,
marker added or animated, balloon opened, viewport fitted, map destroyed)
is broadcast as an "op" message. Each client runs two goroutines:

  - readPump: decodes client input and routes it to the Handler
  - writePump: writes queued messages and keeps the connection alive

# Protocol

Server to client:

  - snapshot: complete state, sent on connect and on resync
  - op: one mapsdk.Op; Seq increases by one per session
  - view: view mode changes (map or fallback)
  - pong, error

Client to server:

  - ping
  - resync: request a new snapshot
  - event: {"session", "kind", "marker_id"} interaction on a marker,
    the map or a balloon
  - resize: {"container", "width", "height"} new container size

A snapshot is queued from the hub goroutine at registration, so every op
the client receives afterwards either is already reflected in it (Seq not
greater than the snapshot's) or follows it. Clients drop ops whose Seq
does not exceed what they hold and ask for a resync when they see a gap.

# Usage

	hub := websocket.NewHub(websocket.HubOptions{Handler: h, Snapshot: snap})
	runtime := mapsdk.NewSceneRuntime(hub)
	tree.AddMessagingService(hub)

	conn, _ := upgrader.Upgrade(w, r, nil)
	client := websocket.NewClient(hub, conn)
	hub.Register <- client
	client.Start()
*/
package websocket
