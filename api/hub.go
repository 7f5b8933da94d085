package api

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrBufferFull is returned when a connection's send buffer is full.
var ErrBufferFull = errors.New("send buffer full")

// Connection represents a single WebSocket connection, bound to one chat
// session for its whole lifetime.
type Connection struct {
	ID        string
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte
	mu        sync.Mutex
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

// Hub manages all WebSocket connections, indexed by connection id and by
// session id. A session may hold several connections (multiple tabs).
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	sessions    map[string]map[string]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		sessions:    make(map[string]map[string]bool),
	}
}

// NewConnection creates a connection bound to the given session.
func (h *Hub) NewConnection(ws *websocket.Conn, sessionID string) *Connection {
	return &Connection{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Conn:      ws,
		Send:      make(chan []byte, 256),
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[conn.ID] = conn
	if h.sessions[conn.SessionID] == nil {
		h.sessions[conn.SessionID] = make(map[string]bool)
	}
	h.sessions[conn.SessionID][conn.ID] = true
	log.Printf("connection registered: %s (session: %s)", conn.ID, conn.SessionID)
}

// Unregister removes a connection and reports whether it was the session's
// last one, so the caller can release per-session state.
func (h *Hub) Unregister(conn *Connection) (sessionGone bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return false
	}
	delete(h.connections, conn.ID)
	close(conn.Send)

	if peers := h.sessions[conn.SessionID]; peers != nil {
		delete(peers, conn.ID)
		if len(peers) == 0 {
			delete(h.sessions, conn.SessionID)
			sessionGone = true
		}
	}
	log.Printf("connection unregistered: %s", conn.ID)
	return sessionGone
}

// Send queues a message on a specific connection.
func (h *Hub) Send(conn *Connection, data []byte) error {
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// SendJSON queues a JSON message on a specific connection.
func (h *Hub) SendJSON(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.Send(conn, data)
}

// Broadcast sends a message to every connection of a session.
func (h *Hub) Broadcast(sessionID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID := range h.sessions[sessionID] {
		conn := h.connections[connID]
		if conn == nil {
			continue
		}
		select {
		case conn.Send <- data:
		default:
			log.Printf("WARN: connection %s buffer full, dropping message", connID)
		}
	}
}

// BroadcastJSON sends a JSON message to every connection of a session.
func (h *Hub) BroadcastJSON(sessionID string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(sessionID, data)
	return nil
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// SessionCount returns the number of sessions with at least one connection.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// HasActiveConnections checks if a session has any active connections.
func (h *Hub) HasActiveConnections(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID]) > 0
}
