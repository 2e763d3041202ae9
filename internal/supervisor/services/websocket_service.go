// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package services

import (
	"context"
	"errors"

	"github.com/tomtom215/eventmap/internal/logging"
)

// ContextHub matches the lifecycle of *websocket.Hub.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
	GetClientCount() int
}

// WebSocketHubService wraps the display client hub as a supervised service.
//
// A hub that returns while the context is still live has crashed; the
// service reports it as an error so suture restarts it. Display clients
// that were connected reconnect and receive a fresh snapshot.
//
// Example usage:
//
//	hub := websocket.NewHub(websocket.HubOptions{Handler: display, Snapshot: display.Snapshot})
//	tree.AddMessagingService(services.NewWebSocketHubService(hub))
type WebSocketHubService struct {
	hub  ContextHub
	name string
}

// errHubStopped is returned when the hub exits without being asked to.
var errHubStopped = errors.New("websocket hub stopped unexpectedly")

// NewWebSocketHubService creates a new hub service wrapper.
func NewWebSocketHubService(hub ContextHub) *WebSocketHubService {
	return &WebSocketHubService{
		hub:  hub,
		name: "websocket-hub",
	}
}

// Serve implements suture.Service.
func (w *WebSocketHubService) Serve(ctx context.Context) error {
	err := w.hub.RunWithContext(ctx)
	if ctx.Err() != nil {
		logging.Info().Int("clients", w.hub.GetClientCount()).Msg("websocket hub stopped")
		return ctx.Err()
	}
	if err == nil {
		err = errHubStopped
	}
	logging.Warn().Err(err).Msg("websocket hub exited, restarting")
	return err
}

// String implements fmt.Stringer for logging.
func (w *WebSocketHubService) String() string {
	return w.name
}
