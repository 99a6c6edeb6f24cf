// Package hub provides connection management for WebSocket clients.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection represents a single WebSocket connection of one participant.
type Connection struct {
	ID            string
	ParticipantID string
	Conn          *websocket.Conn
	Send          chan []byte
	mu            sync.Mutex
}

// Hub fans messages out to every connection of a participant.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// participants maps participant id to its connection IDs
	participants map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *participantMessage

	// done is closed when Run returns; later sends are dropped.
	done chan struct{}

	logger *slog.Logger
	mu     sync.RWMutex
}

type participantMessage struct {
	ParticipantID string
	Data          []byte
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		connections:  make(map[string]*Connection),
		participants: make(map[string]map[string]bool),
		register:     make(chan *Connection),
		unregister:   make(chan *Connection),
		broadcast:    make(chan *participantMessage, 256),
		done:         make(chan struct{}),
		logger:       logger,
	}
}

// Run starts the hub's main loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if h.participants[conn.ParticipantID] == nil {
				h.participants[conn.ParticipantID] = make(map[string]bool)
			}
			h.participants[conn.ParticipantID][conn.ID] = true
			h.mu.Unlock()
			h.logger.Debug("connection registered", "conn_id", conn.ID, "participant_id", conn.ParticipantID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				if ids := h.participants[conn.ParticipantID]; ids != nil {
					delete(ids, conn.ID)
					if len(ids) == 0 {
						delete(h.participants, conn.ParticipantID)
					}
				}
				close(conn.Send)
			}
			h.mu.Unlock()
			h.logger.Debug("connection unregistered", "conn_id", conn.ID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for connID := range h.participants[msg.ParticipantID] {
				conn, exists := h.connections[connID]
				if !exists {
					continue
				}
				select {
				case conn.Send <- msg.Data:
				default:
					h.logger.Warn("connection buffer full, closing", "conn_id", connID)
					go h.Unregister(conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NewConnection creates a connection for a participant; call Register to attach it.
func (h *Hub) NewConnection(ws *websocket.Conn, participantID string) *Connection {
	return &Connection{
		ID:            uuid.New().String(),
		ParticipantID: participantID,
		Conn:          ws,
		Send:          make(chan []byte, 256),
	}
}

// Register registers a connection with the hub.
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
	}
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Broadcast sends data to all connections of a participant.
func (h *Hub) Broadcast(participantID string, data []byte) {
	select {
	case h.broadcast <- &participantMessage{ParticipantID: participantID, Data: data}:
	case <-h.done:
	}
}

// Notify marshals v once and sends it to each distinct non-empty participant.
func (h *Hub) Notify(participantIDs []string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(participantIDs))
	for _, id := range participantIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		h.Broadcast(id, data)
	}
	return nil
}

// GetConnectionCount returns the number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// HasActiveConnections checks if a participant has any active connections.
func (h *Hub) HasActiveConnections(participantID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.participants[participantID]) > 0
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
