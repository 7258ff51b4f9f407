package handlers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taimako-widget/models"
	"taimako-widget/services"
)

// Service seam; tests swap these for stubs.
var (
	lookupWidget      = services.GetWidgetByPublicID
	lookupGuest       = services.GetGuest
	lookupSession     = services.GetChatSession
	countSessionsDay  = services.CountGuestSessionsSince
	countMessages     = services.CountSessionMessages
	createSession     = services.CreateChatSession
	markLead          = services.MarkGuestLead
	loadAgentHistory  = services.GetSessionHistoryForAgent
	saveMessage       = services.SaveGuestMessage
	touchSession      = services.TouchSession
	requestAgentReply = services.GetAgentReply
)

// SessionInitRequest creates a session and delivers its first message in one
// call. Origin and context are only ever accepted here.
type SessionInitRequest struct {
	GuestID string                 `json:"guest_id"`
	Message string                 `json:"message"`
	Origin  string                 `json:"origin"`
	Context *models.SessionContext `json:"context"`
}

// ChatContinueRequest carries a follow-up message for an existing session.
type ChatContinueRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the confirmed pair the client swaps in for its optimistic
// message: the stored guest message and the AI reply.
type ChatResponse struct {
	Message  *models.GuestMessage `json:"message"`
	Response *models.GuestMessage `json:"response"`
}

// InitGuestSession allocates a session for the guest's first message,
// stores the message, and returns it together with the AI reply. The
// session id the client must reuse rides on the stored guest message.
func InitGuestSession(c *fiber.Ctx) error {
	widgetID := c.Params("widgetID")

	var req SessionInitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.GuestID == "" || strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "guest_id and message are required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	widget, err := lookupWidget(ctx, widgetID)
	if err != nil {
		slog.Error("Failed to get widget", "error", err, "widgetID", widgetID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}
	if widget == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Widget not found",
		})
	}

	guest, err := lookupGuest(ctx, req.GuestID)
	if err != nil {
		slog.Error("Failed to get guest", "error", err, "guestID", req.GuestID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}
	if guest == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Guest not found",
		})
	}

	// Per-day session quota
	if widget.MaxSessionsPerDay > 0 {
		now := time.Now()
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		count, err := countSessionsDay(ctx, guest.GuestID, dayStart)
		if err != nil {
			slog.Error("Failed to count sessions", "error", err, "guestID", guest.GuestID)
		} else if count >= int64(widget.MaxSessionsPerDay) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Daily session limit reached",
			})
		}
	}

	session, err := createSession(ctx, widget, guest, req.Origin, req.Context)
	if err != nil {
		slog.Error("Failed to create session", "error", err, "guestID", guest.GuestID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}

	// First session makes the guest a lead
	if !guest.IsLead {
		if err := markLead(ctx, guest.GuestID); err != nil {
			slog.Warn("Failed to mark guest as lead", "error", err, "guestID", guest.GuestID)
		}
	}

	pair, err := deliverMessage(ctx, widget, session, strings.TrimSpace(req.Message), nil)
	if err != nil {
		slog.Error("Failed to deliver first message", "error", err, "sessionID", session.SessionID)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to get response",
		})
	}

	services.GetWebSocketManager().BroadcastToOwner(services.BroadcastMessage{
		OwnerID:  widget.OwnerID,
		WidgetID: widget.PublicWidgetID,
		Type:     "session_started",
		Data:     session,
	})

	return c.JSON(pair)
}

// ContinueSession appends a message to an existing session. Context is never
// accepted here; it was fixed at session creation.
func ContinueSession(c *fiber.Ctx) error {
	widgetID := c.Params("widgetID")
	sessionID := c.Params("sessionID")

	var req ChatContinueRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "message is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	widget, err := lookupWidget(ctx, widgetID)
	if err != nil {
		slog.Error("Failed to get widget", "error", err, "widgetID", widgetID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}
	if widget == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Widget not found",
		})
	}

	session, err := lookupSession(ctx, sessionID)
	if err != nil {
		slog.Error("Failed to get session", "error", err, "sessionID", sessionID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}
	if session == nil || session.WidgetID != widget.PublicWidgetID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}

	// Per-session message quota
	if widget.MaxMessagesPerSession > 0 {
		count, err := countMessages(ctx, sessionID)
		if err != nil {
			slog.Error("Failed to count messages", "error", err, "sessionID", sessionID)
		} else if count >= int64(widget.MaxMessagesPerSession) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Session message limit reached",
			})
		}
	}

	history, err := loadAgentHistory(ctx, sessionID, 10)
	if err != nil {
		slog.Warn("Failed to load history for agent", "error", err, "sessionID", sessionID)
		history = nil
	}

	pair, err := deliverMessage(ctx, widget, session, strings.TrimSpace(req.Message), history)
	if err != nil {
		slog.Error("Failed to deliver message", "error", err, "sessionID", sessionID)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to get response",
		})
	}

	return c.JSON(pair)
}

// deliverMessage stores the guest turn, asks the agent for a reply, stores
// the reply, and bumps the session clock.
func deliverMessage(ctx context.Context, widget *models.Widget, session *models.ChatSession, text string, history []services.AgentTurn) (*ChatResponse, error) {
	now := time.Now()
	guestMsg := &models.GuestMessage{
		ID:          primitive.NewObjectID(),
		MessageID:   uuid.New().String(),
		GuestID:     session.GuestID,
		SessionID:   session.SessionID,
		WidgetID:    widget.PublicWidgetID,
		Sender:      models.SenderGuest,
		MessageText: text,
		CreatedAt:   now,
	}
	if err := saveMessage(ctx, guestMsg); err != nil {
		return nil, err
	}

	reply, err := requestAgentReply(ctx, widget.PublicWidgetID, text, history)
	if err != nil {
		return nil, err
	}

	aiMsg := &models.GuestMessage{
		ID:          primitive.NewObjectID(),
		MessageID:   uuid.New().String(),
		GuestID:     session.GuestID,
		SessionID:   session.SessionID,
		WidgetID:    widget.PublicWidgetID,
		Sender:      models.SenderAI,
		MessageText: reply,
		CreatedAt:   time.Now(),
	}
	if err := saveMessage(ctx, aiMsg); err != nil {
		return nil, err
	}

	if err := touchSession(ctx, session.SessionID, aiMsg.CreatedAt); err != nil {
		slog.Warn("Failed to touch session", "error", err, "sessionID", session.SessionID)
	}

	services.GetWebSocketManager().BroadcastToOwner(services.BroadcastMessage{
		OwnerID:  widget.OwnerID,
		WidgetID: widget.PublicWidgetID,
		Type:     "message_received",
		Data:     guestMsg,
	})

	return &ChatResponse{Message: guestMsg, Response: aiMsg}, nil
}
