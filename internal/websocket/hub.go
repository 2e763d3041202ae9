// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/eventmap/internal/logging"
	"github.com/tomtom215/eventmap/internal/mapsdk"
	"github.com/tomtom215/eventmap/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types sent to display clients
const (
	MessageTypeSnapshot = "snapshot"
	MessageTypeOp       = "op"
	MessageTypeView     = "view"
	MessageTypePong     = "pong"
	MessageTypeError    = "error"
)

// Message types received from display clients
const (
	MessageTypePing   = "ping"
	MessageTypeEvent  = "event"
	MessageTypeResize = "resize"
	MessageTypeResync = "resync"
)

// Message represents an outbound WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// inbound is a client message with its payload left undecoded until the
// type is known.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EventData is the payload of an "event" message: an interaction on the
// client's copy of a map session.
type EventData struct {
	Session  string           `json:"session"`
	Kind     mapsdk.EventKind `json:"kind"`
	MarkerID string           `json:"marker_id,omitempty"`
}

// ResizeData is the payload of a "resize" message.
type ResizeData struct {
	Container string `json:"container"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// ErrorData is the payload of an "error" message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handler receives input from display clients. Implementations must be safe
// for concurrent use; they are called from client read goroutines.
type Handler interface {
	// HandleEvent forwards an interaction to the named map session. It
	// reports false when the session is unknown or gone.
	HandleEvent(session string, ev mapsdk.Event) bool
	// HandleResize records a new container size. It reports false when the
	// container is unknown.
	HandleResize(container string, width, height int) bool
}

// SnapshotFunc returns the complete state sent to a client on connect and
// on resync.
type SnapshotFunc func() interface{}

// HubOptions configures a Hub.
type HubOptions struct {
	Handler  Handler
	Snapshot SnapshotFunc
}

// Hub maintains the set of active display clients, streams scene ops to
// them and routes their input to a Handler.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	handler  Handler
	snapshot SnapshotFunc
}

// NewHub creates a new Hub
func NewHub(opts HubOptions) *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		handler:    opts.Handler,
		snapshot:   opts.Snapshot,
	}
}

// RunWithContext runs the hub until ctx is canceled, then closes every
// client and returns ctx.Err().
//
// Selection is priority based: shutdown first, then client lifecycle, then
// broadcasts. A client is therefore always registered, and has received its
// snapshot, before any op queued after its registration reaches it.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// Serve implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	return h.RunWithContext(ctx)
}

// String implements fmt.Stringer for supervisor logs.
func (h *Hub) String() string {
	return "websocket-hub"
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Inc()
	logging.Info().Uint64("client_id", client.id).Int("total_clients", total).Msg("websocket client connected")

	h.sendSnapshot(client)
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	if ok {
		metrics.WSConnections.Dec()
	}
	logging.Info().Uint64("client_id", client.id).Int("total_clients", total).Msg("websocket client disconnected")
}

// sendSnapshot queues the current state for one client.
func (h *Hub) sendSnapshot(client *Client) {
	if h.snapshot == nil {
		return
	}
	h.sendTo(client, Message{Type: MessageTypeSnapshot, Data: h.snapshot()})
}

// sendTo queues msg for a single registered client without blocking.
func (h *Hub) sendTo(client *Client, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- msg:
		metrics.WSMessagesSent.Inc()
	default:
		metrics.WSErrors.WithLabelValues("send_buffer_full").Inc()
		logging.Warn().Uint64("client_id", client.id).Str("message_type", msg.Type).Msg("client send buffer full, dropping message")
	}
}

// logGracefulShutdown closes all clients and logs why the hub stopped.
// ctx.Err() is not logged as an error since cancellation is the normal
// shutdown path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// sortedClients returns clients in ID order. Caller holds h.mu.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients sends a message to all connected clients in ID order.
// Clients whose buffer is full are dropped; they reconnect and receive a
// fresh snapshot.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var toRemove []*Client
	for _, client := range h.sortedClients() {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.WSConnections.Dec()
		metrics.WSErrors.WithLabelValues("slow_client").Inc()
		logging.Warn().Uint64("client_id", client.id).Msg("dropping slow websocket client")
	}
}

// closeAllClients closes all connected clients in ID order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClients() {
		close(client.send)
		delete(h.clients, client)
		metrics.WSConnections.Dec()
	}
}

// Publish implements mapsdk.Publisher. It never blocks; when the broadcast
// queue is full the op is dropped and clients recover through the sequence
// gap.
func (h *Hub) Publish(op mapsdk.Op) {
	h.BroadcastJSON(MessageTypeOp, op)
}

// BroadcastJSON sends a message to all connected clients
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	message := Message{
		Type: messageType,
		Data: data,
	}

	select {
	case h.broadcast <- message:
	default:
		metrics.WSErrors.WithLabelValues("broadcast_full").Inc()
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handleInbound routes one decoded client message.
func (h *Hub) handleInbound(c *Client, msg inbound) {
	metrics.WSMessagesReceived.Inc()

	switch msg.Type {
	case MessageTypePing:
		h.sendTo(c, Message{Type: MessageTypePong})

	case MessageTypeResync:
		h.sendSnapshot(c)

	case MessageTypeEvent:
		var data EventData
		if err := json.Unmarshal(msg.Data, &data); err != nil || !data.Kind.Valid() {
			h.reject(c, "INVALID_EVENT", "event payload is malformed")
			return
		}
		if h.handler == nil {
			return
		}
		if !h.handler.HandleEvent(data.Session, mapsdk.Event{Kind: data.Kind, MarkerID: data.MarkerID}) {
			// Stale session: the client is behind, so bring it up to date.
			h.sendSnapshot(c)
		}

	case MessageTypeResize:
		var data ResizeData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Width <= 0 || data.Height <= 0 {
			h.reject(c, "INVALID_RESIZE", "resize payload is malformed")
			return
		}
		if h.handler != nil && !h.handler.HandleResize(data.Container, data.Width, data.Height) {
			h.reject(c, "UNKNOWN_CONTAINER", "no map container with that id")
		}

	default:
		h.reject(c, "UNKNOWN_TYPE", "unsupported message type")
	}
}

func (h *Hub) reject(c *Client, code, message string) {
	metrics.WSErrors.WithLabelValues("invalid_message").Inc()
	logging.Debug().Uint64("client_id", c.id).Str("code", code).Msg("rejected websocket message")
	h.sendTo(c, Message{Type: MessageTypeError, Data: ErrorData{Code: code, Message: message}})
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
