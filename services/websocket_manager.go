package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// WebSocket errors
var (
	ErrConnectionNotFound   = errors.New("connection not found")
	ErrConnectionBufferFull = errors.New("connection buffer full")
)

// WebSocketManager fans widget interaction events out to dashboard viewers.
type WebSocketManager struct {
	// Map of owner ID to map of connection ID to connection
	connections map[string]map[string]*WebSocketConnection
	mu          sync.RWMutex
	broadcast   chan BroadcastMessage
}

// WebSocketConnection represents a single dashboard connection
type WebSocketConnection struct {
	Conn         *websocket.Conn
	OwnerID      string
	ConnectionID string
	Send         chan []byte
}

// BroadcastMessage represents an event to broadcast to a widget owner
type BroadcastMessage struct {
	OwnerID  string
	WidgetID string
	Type     string
	Data     interface{}
}

// MessagePayload represents the structure of WebSocket messages
type MessagePayload struct {
	Type      string      `json:"type"`
	WidgetID  string      `json:"widget_id,omitempty"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

var wsManager *WebSocketManager
var once sync.Once

// GetWebSocketManager returns the singleton WebSocket manager
func GetWebSocketManager() *WebSocketManager {
	once.Do(func() {
		wsManager = &WebSocketManager{
			connections: make(map[string]map[string]*WebSocketConnection),
			broadcast:   make(chan BroadcastMessage, 100),
		}
		go wsManager.handleBroadcast()
	})
	return wsManager
}

// RegisterConnection registers a new dashboard connection
func (m *WebSocketManager) RegisterConnection(conn *WebSocketConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connections[conn.OwnerID] == nil {
		m.connections[conn.OwnerID] = make(map[string]*WebSocketConnection)
	}

	m.connections[conn.OwnerID][conn.ConnectionID] = conn

	slog.Info("WebSocket connection registered",
		"ownerID", conn.OwnerID,
		"connectionID", conn.ConnectionID,
		"totalConnections", len(m.connections[conn.OwnerID]))
}

// UnregisterConnection removes a dashboard connection
func (m *WebSocketManager) UnregisterConnection(ownerID, connectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ownerConns, exists := m.connections[ownerID]; exists {
		if conn, exists := ownerConns[connectionID]; exists {
			close(conn.Send)
			delete(ownerConns, connectionID)

			slog.Info("WebSocket connection unregistered",
				"ownerID", ownerID,
				"connectionID", connectionID,
				"remainingConnections", len(ownerConns))

			// Clean up empty owner map
			if len(ownerConns) == 0 {
				delete(m.connections, ownerID)
			}
		}
	}
}

// BroadcastToOwner queues an event for all of an owner's dashboard connections
func (m *WebSocketManager) BroadcastToOwner(message BroadcastMessage) {
	m.broadcast <- message
}

// handleBroadcast processes broadcast messages
func (m *WebSocketManager) handleBroadcast() {
	for message := range m.broadcast {
		m.mu.RLock()
		ownerConns, exists := m.connections[message.OwnerID]
		m.mu.RUnlock()

		if !exists {
			continue
		}

		payload := MessagePayload{
			Type:      message.Type,
			WidgetID:  message.WidgetID,
			Data:      message.Data,
			Timestamp: time.Now().Unix(),
		}

		jsonData, err := json.Marshal(payload)
		if err != nil {
			slog.Error("Failed to marshal WebSocket message", "error", err)
			continue
		}

		// Send to all connections for this owner
		m.mu.RLock()
		for _, conn := range ownerConns {
			select {
			case conn.Send <- jsonData:
				// Message sent successfully
			default:
				// Connection buffer full, skip
				slog.Warn("WebSocket connection buffer full",
					"ownerID", message.OwnerID,
					"connectionID", conn.ConnectionID)
			}
		}
		m.mu.RUnlock()
	}
}

// GetConnectionCount returns the number of active connections for an owner
func (m *WebSocketManager) GetConnectionCount(ownerID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if ownerConns, exists := m.connections[ownerID]; exists {
		return len(ownerConns)
	}
	return 0
}
