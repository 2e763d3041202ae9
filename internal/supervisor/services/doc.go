// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

/*
Package services adapts Eventmap components to suture.Service.

HTTPServerService turns the ListenAndServe/Shutdown pair of *http.Server
into a context-aware Serve. NewHTTPServer builds that server from the
server settings.

WebSocketHubService runs the display client hub. A hub that exits while
its context is live is reported as a failure so the supervisor restarts
it; reconnecting display clients receive a fresh snapshot.

The ui loop and the catalog watcher and consumer already implement
Serve(ctx) error and are added to the tree directly.

All wrappers implement fmt.Stringer so suture log lines name them.
*/
package services
