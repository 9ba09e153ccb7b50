// WebSocket control channel: clients receive sync lifecycle events and
// send cache control messages.
package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/araeLaver/petchecky-sub002/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Only allow connections from localhost
		host := r.Host
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		return host == "localhost" || host == "127.0.0.1"
	},
}

// Control message types accepted from clients.
const (
	MsgSkipWaiting    = "SKIP_WAITING"
	MsgCacheURLs      = "CACHE_URLS"
	MsgClearCache     = "CLEAR_CACHE"
	MsgGetCacheStatus = "GET_CACHE_STATUS"
)

// Event types broadcast to clients.
const (
	EventSyncStarted   = "sync.started"
	EventSyncCompleted = "sync.completed"
	EventSyncFailed    = "sync.failed"
	EventCacheStatus   = "cache.status"
	EventActivated     = "activated"
)

// Controller is the daemon surface control messages act on.
type Controller interface {
	SkipWaiting()
	CacheURLs(urls []string)
	ClearCaches()
	CacheStatus() map[string]int
}

// WSEnvelope wraps all outbound messages.
type WSEnvelope struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp int64          `json:"timestamp"`
}

// WSClient represents one connected client.
type WSClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *WSHub
}

// WSHub maintains active client connections and broadcasts messages.
type WSHub struct {
	controller Controller

	clients    map[string]*WSClient
	broadcast  chan []byte
	register   chan *WSClient
	unregister chan *WSClient
	mu         sync.RWMutex
}

// NewWSHub creates a hub and starts its dispatch loop.
func NewWSHub(controller Controller) *WSHub {
	hub := &WSHub{
		controller: controller,
		clients:    make(map[string]*WSClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
	go hub.run()
	return hub
}

func (h *WSHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			total := len(h.clients)
			h.mu.Unlock()
			logging.Debug("WS client connected",
				map[string]any{"client": client.id, "total": total})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			logging.Debug("WS client disconnected",
				map[string]any{"client": client.id, "total": total})

		case message := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client send buffer is full, close connection
					close(client.send)
					delete(h.clients, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an enveloped event to all connected clients.
func (h *WSHub) Broadcast(messageType string, data map[string]any) {
	envelope := WSEnvelope{
		Type:      messageType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		logging.Error("Failed to marshal WS message", err)
		return
	}

	h.broadcast <- bytes
}

// BroadcastSyncStarted notifies clients that a drain pass began.
func (h *WSHub) BroadcastSyncStarted(pending int) {
	h.Broadcast(EventSyncStarted, map[string]any{
		"pending": pending,
	})
}

// BroadcastSyncCompleted notifies clients that a drain pass finished clean.
func (h *WSHub) BroadcastSyncCompleted(pending int) {
	h.Broadcast(EventSyncCompleted, map[string]any{
		"pending": pending,
		"status":  "completed",
	})
}

// BroadcastSyncFailed notifies clients that a drain pass ended with an
// error; the remaining items stay queued for the next pass.
func (h *WSHub) BroadcastSyncFailed(pending int, errMsg string) {
	h.Broadcast(EventSyncFailed, map[string]any{
		"pending": pending,
		"error":   errMsg,
		"status":  "failed",
	})
}

// controlMessage is the inbound client message shape.
type controlMessage struct {
	Type string   `json:"type"`
	URLs []string `json:"urls,omitempty"`
}

// handleControl dispatches one inbound control message.
func (c *WSClient) handleControl(msg *controlMessage) {
	switch msg.Type {
	case MsgSkipWaiting:
		c.hub.controller.SkipWaiting()
		c.hub.Broadcast(EventActivated, map[string]any{})

	case MsgCacheURLs:
		c.hub.controller.CacheURLs(msg.URLs)

	case MsgClearCache:
		c.hub.controller.ClearCaches()

	case MsgGetCacheStatus:
		status := c.hub.controller.CacheStatus()
		data := make(map[string]any, len(status))
		for name, count := range status {
			data[name] = count
		}
		c.sendEvent(EventCacheStatus, data)

	default:
		logging.Debug("Unknown WS control message",
			map[string]any{"type": msg.Type})
	}
}

// sendEvent sends an enveloped event to this client only.
func (c *WSClient) sendEvent(messageType string, data map[string]any) {
	envelope := WSEnvelope{
		Type:      messageType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return
	}
	select {
	case c.send <- bytes:
	default:
	}
}

// readPump pumps control messages from the connection.
func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Debug("WS read error", map[string]any{"error": err.Error()})
			}
			break
		}

		var msg controlMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logging.Debug("Invalid WS message format", map[string]any{"error": err.Error()})
			continue
		}
		c.handleControl(&msg)
	}
}

// writePump pumps outbound messages to the connection.
func (c *WSClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleWebSocket upgrades a connection and registers it with the hub.
func HandleWebSocket(hub *WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Warn("WS upgrade failed", map[string]any{"error": err.Error()})
			return
		}

		client := &WSClient{
			id:   time.Now().Format("20060102150405.000") + "-" + r.RemoteAddr,
			conn: conn,
			send: make(chan []byte, 256),
			hub:  hub,
		}

		hub.register <- client
		go client.writePump()
		go client.readPump()
	}
}
