package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/jeongseonghan/cpfsk/internal/report"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage represents a WebSocket message.
type WSMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// WSHub manages WebSocket connections.
type WSHub struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
	writeMu sync.Mutex
	logger  *log.Logger
	onCount func(int)
}

// NewWSHub creates a new WebSocket hub. onCount, if set, is called with the
// client count whenever a client joins or leaves.
func NewWSHub(logger *log.Logger, onCount func(int)) *WSHub {
	return &WSHub{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
		onCount: onCount,
	}
}

// AddClient registers a new WebSocket connection.
func (h *WSHub) AddClient(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("WebSocket client connected", "total", n)
	if h.onCount != nil {
		h.onCount(n)
	}
}

// RemoveClient removes a WebSocket connection.
func (h *WSHub) RemoveClient(conn *websocket.Conn) {
	h.mu.Lock()
	if !h.clients[conn] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, conn)
	n := len(h.clients)
	h.mu.Unlock()

	conn.Close()
	h.logger.Info("WebSocket client disconnected", "remaining", n)
	if h.onCount != nil {
		h.onCount(n)
	}
}

// ClientCount returns the number of connected clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to all connected clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("WebSocket marshal error", "err", err)
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	// gorilla connections allow one concurrent writer.
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Warn("WebSocket write error", "err", err)
			go h.RemoveClient(conn)
		}
	}
}

// BroadcastLog sends a log message to all clients.
func (h *WSHub) BroadcastLog(level, message string) {
	h.Broadcast(WSMessage{
		Type: "log",
		Payload: map[string]string{
			"level":   level,
			"message": message,
		},
	})
}

// Publish sends the run summary to all clients, so the hub can act as a
// run sink.
func (h *WSHub) Publish(r *report.Run) error {
	h.Broadcast(WSMessage{Type: "run", Payload: r.Summary()})
	return nil
}

// CloseAll disconnects every client.
func (h *WSHub) CloseAll() {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.RemoveClient(conn)
	}
}
