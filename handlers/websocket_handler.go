package handlers

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"taimako-widget/services"
)

// WebSocketUpgrade upgrades HTTP connection to WebSocket
func WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		ownerID := c.Query("owner_id")
		if ownerID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "owner_id is required")
		}
		c.Locals("owner_id", ownerID)
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// HandleDashboardSocket streams widget interaction events (new sessions,
// new guest messages) to an owner's dashboard.
func HandleDashboardSocket(c *websocket.Conn) {
	ownerID, ok := c.Locals("owner_id").(string)
	if !ok || ownerID == "" {
		slog.Error("WebSocket connection without owner ID")
		c.Close()
		return
	}

	connectionID := uuid.New().String()

	conn := &services.WebSocketConnection{
		Conn:         c,
		OwnerID:      ownerID,
		ConnectionID: connectionID,
		Send:         make(chan []byte, 256),
	}

	wsManager := services.GetWebSocketManager()
	wsManager.RegisterConnection(conn)
	defer wsManager.UnregisterConnection(ownerID, connectionID)

	slog.Info("WebSocket connection established",
		"ownerID", ownerID,
		"connectionID", connectionID)

	// Send initial connection success message
	welcomeMsg := map[string]interface{}{
		"type":          "connected",
		"message":       "WebSocket connection established",
		"connection_id": connectionID,
	}
	if welcomeData, err := json.Marshal(welcomeMsg); err == nil {
		c.WriteMessage(websocket.TextMessage, welcomeData)
	}

	// Writer goroutine drains the send buffer
	go func() {
		for data := range conn.Send {
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Warn("WebSocket write failed",
					"ownerID", ownerID,
					"connectionID", connectionID,
					"error", err)
				return
			}
		}
	}()

	// Reader loop; the feed is one-way, so inbound frames are only used to
	// detect disconnects and answer pings
	for {
		messageType, _, err := c.ReadMessage()
		if err != nil {
			slog.Info("WebSocket connection closed",
				"ownerID", ownerID,
				"connectionID", connectionID)
			return
		}
		if messageType == websocket.PingMessage {
			c.WriteMessage(websocket.PongMessage, nil)
		}
	}
}
