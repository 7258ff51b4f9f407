package handlers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"taimako-widget/services"
)

// GuestStartRequest is the intake form payload.
type GuestStartRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// GuestStartResponse hands the durable guest identifier back to the frame,
// which persists it in browser storage keyed by widget id.
type GuestStartResponse struct {
	GuestID       string `json:"guest_id"`
	WidgetOwnerID string `json:"widget_owner_id"`
	Status        string `json:"status"`
}

// ValidateIntake enforces the intake contract: a name plus at least one
// contact method.
func ValidateIntake(name, email, phone string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	return strings.TrimSpace(email) != "" || strings.TrimSpace(phone) != ""
}

// StartGuest registers a guest for a widget. No session is created here;
// sessions are allocated lazily by the first delivered message.
func StartGuest(c *fiber.Ctx) error {
	widgetID := c.Params("widgetID")

	var req GuestStartRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if !ValidateIntake(req.Name, req.Email, req.Phone) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name and either email or phone are required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	widget, err := services.GetWidgetByPublicID(ctx, widgetID)
	if err != nil {
		slog.Error("Failed to get widget", "error", err, "widgetID", widgetID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to start chat",
		})
	}
	if widget == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Widget not found",
		})
	}

	guest, err := services.CreateGuest(ctx, widget, strings.TrimSpace(req.Name), strings.TrimSpace(req.Email), strings.TrimSpace(req.Phone))
	if err != nil {
		slog.Error("Failed to create guest", "error", err, "widgetID", widgetID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to start chat",
		})
	}

	return c.JSON(GuestStartResponse{
		GuestID:       guest.GuestID,
		WidgetOwnerID: widget.OwnerID,
		Status:        "ok",
	})
}
