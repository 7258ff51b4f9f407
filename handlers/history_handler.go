package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"taimako-widget/models"
	"taimako-widget/services"
)

// SessionSummary is the lightweight listing entry the history view renders.
type SessionSummary struct {
	ID            string     `json:"id"`
	CreatedAt     time.Time  `json:"created_at"`
	LastMessageAt time.Time  `json:"last_message_at"`
	Origin        string     `json:"origin"`
	Summary       string     `json:"summary,omitempty"`
	TopIntent     string     `json:"top_intent,omitempty"`
	SummaryAt     *time.Time `json:"summary_generated_at,omitempty"`
	DeviceType    string     `json:"device_type,omitempty"`
	OS            string     `json:"os,omitempty"`
}

// GetGuestSessionHistory lists a guest's prior sessions, newest first.
func GetGuestSessionHistory(c *fiber.Ctx) error {
	guestID := c.Params("guestID")
	if guestID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Guest ID is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessions, err := services.ListGuestSessions(ctx, guestID)
	if err != nil {
		slog.Error("Failed to list sessions", "error", err, "guestID", guestID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve session history",
		})
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		entry := SessionSummary{
			ID:            s.SessionID,
			CreatedAt:     s.CreatedAt,
			LastMessageAt: s.LastMessageAt,
			Origin:        s.Origin,
			Summary:       s.Summary,
			TopIntent:     s.TopIntent,
			SummaryAt:     s.SummaryGeneratedAt,
		}
		if s.Context != nil {
			entry.DeviceType = s.Context.DeviceType
			entry.OS = s.Context.OS
		}
		summaries = append(summaries, entry)
	}

	return c.JSON(summaries)
}

// GetSessionMessages returns the full ordered transcript for a session,
// used by the client to rehydrate a resumed conversation.
func GetSessionMessages(c *fiber.Ctx) error {
	sessionID := c.Params("sessionID")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Session ID is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	messages, err := services.GetSessionMessages(ctx, sessionID)
	if err != nil {
		slog.Error("Failed to get session messages", "error", err, "sessionID", sessionID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve messages",
		})
	}

	if messages == nil {
		messages = []models.GuestMessage{}
	}
	return c.JSON(messages)
}
