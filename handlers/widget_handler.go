package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"taimako-widget/services"
)

// GetWidgetConfig returns the public configuration for a widget. The loader
// and the embedded frame both fetch this once per page load.
func GetWidgetConfig(c *fiber.Ctx) error {
	widgetID := c.Params("widgetID")
	if widgetID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Widget ID is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	widget, err := services.GetWidgetByPublicID(ctx, widgetID)
	if err != nil {
		slog.Error("Failed to get widget config", "error", err, "widgetID", widgetID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve widget configuration",
		})
	}
	if widget == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Widget not found",
		})
	}

	return c.JSON(widget)
}
