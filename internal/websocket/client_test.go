// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// serveHub upgrades every request and attaches the connection to hub.
func serveHub(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}
		client := NewClient(hub, conn)
		hub.Register <- client
		client.Start()
	}))
	t.Cleanup(server.Close)
	return server
}

// dialWebSocket establishes a WebSocket connection to the test server
func dialWebSocket(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readWire(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return msg
}

func TestNewClient(t *testing.T) {
	hub := NewHub(HubOptions{})
	a, b := NewClient(hub, nil), NewClient(hub, nil)
	if b.ID() <= a.ID() {
		t.Errorf("client IDs should increase: %d then %d", a.ID(), b.ID())
	}
	if cap(a.send) != 256 {
		t.Errorf("send capacity = %d, want 256", cap(a.send))
	}
}

func TestClient_Constants(t *testing.T) {
	if pingPeriod >= pongWait {
		t.Errorf("pingPeriod %v must be shorter than pongWait %v", pingPeriod, pongWait)
	}
	if maxMessageSize != 16*1024 {
		t.Errorf("maxMessageSize = %d", maxMessageSize)
	}
}

func TestClient_EndToEnd(t *testing.T) {
	handler := newFakeHandler("s1")
	hub := startHub(t, HubOptions{
		Handler:  handler,
		Snapshot: func() interface{} { return map[string]string{"mode": "map"} },
	})
	conn := dialWebSocket(t, serveHub(t, hub))

	snap := readWire(t, conn)
	if snap.Type != MessageTypeSnapshot || string(snap.Data) != `{"mode":"map"}` {
		t.Fatalf("first message = %s %s", snap.Type, snap.Data)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatal(err)
	}
	if msg := readWire(t, conn); msg.Type != MessageTypePong {
		t.Fatalf("ping reply = %s", msg.Type)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatal(err)
	}
	if msg := readWire(t, conn); msg.Type != MessageTypeError || !strings.Contains(string(msg.Data), "INVALID_JSON") {
		t.Fatalf("garbage reply = %s %s", msg.Type, msg.Data)
	}

	event := `{"type":"event","data":{"session":"s1","kind":"marker_click","marker_id":"m1"}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(event)); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for handler.eventCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if handler.eventCount() != 1 {
		t.Fatalf("handler saw %d events, want 1", handler.eventCount())
	}

	hub.BroadcastJSON(MessageTypeView, "fallback")
	if msg := readWire(t, conn); msg.Type != MessageTypeView || string(msg.Data) != `"fallback"` {
		t.Fatalf("broadcast = %s %s", msg.Type, msg.Data)
	}
}

func TestClient_DisconnectUnregisters(t *testing.T) {
	hub := startHub(t, HubOptions{})
	conn := dialWebSocket(t, serveHub(t, hub))

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.GetClientCount() != 1 {
		t.Fatal("client never registered")
	}

	_ = conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.GetClientCount() != 0 {
		t.Error("client still registered after disconnect")
	}
}
