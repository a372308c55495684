package telemetry

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ProgressEvent is one pipeline progress update, broadcast to every
// connected client (spec section 6's optional --progress-ws flag).
type ProgressEvent struct {
	Book          string `json:"book"`
	Stage         string `json:"stage"`
	PagesDone     int    `json:"pages_done"`
	PagesTotal    int    `json:"pages_total"`
	CurrentStatus string `json:"current_status"` // "running", "done", "error"
}

// Broadcaster fans out ProgressEvents to connected WebSocket clients.
// Adapted from the teacher's server.ocrWebSocketHandler, retargeted from a
// request/response OCR protocol to a one-directional progress feed.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[*websocket.Conn]struct{})}
}

// ServeHTTP upgrades the connection and registers it to receive progress
// events until the client disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("progress websocket upgrade failed", "error", err)
		return
	}

	b.register(conn)
	defer b.unregister(conn)

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	// Clients don't send anything meaningful; read until they disconnect so
	// the connection's close is observed promptly.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (b *Broadcaster) register(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[conn] = struct{}{}
}

func (b *Broadcaster) unregister(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, conn)
	_ = conn.Close()
}

// Broadcast sends ev to every connected client, dropping any connection
// whose write fails.
func (b *Broadcaster) Broadcast(ev ProgressEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshal progress event", "error", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			delete(b.clients, conn)
			_ = conn.Close()
		}
	}
}
