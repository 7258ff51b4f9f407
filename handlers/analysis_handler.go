package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"taimako-widget/services"
)

// AnalyzeSession runs the lazy enrichment step: hand the transcript to the
// agent, store the summary and top intent on the session, return the
// updated session. Chat works fine without this ever being called.
func AnalyzeSession(c *fiber.Ctx) error {
	sessionID := c.Params("sessionID")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Session ID is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	session, err := services.GetChatSession(ctx, sessionID)
	if err != nil {
		slog.Error("Failed to get session", "error", err, "sessionID", sessionID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to analyze session",
		})
	}
	if session == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}

	transcript, err := services.GetSessionHistoryForAgent(ctx, sessionID, 50)
	if err != nil {
		slog.Error("Failed to load transcript", "error", err, "sessionID", sessionID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to analyze session",
		})
	}
	if len(transcript) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Session has no messages to analyze",
		})
	}

	analysis, err := services.AnalyzeTranscript(ctx, session.WidgetID, transcript)
	if err != nil {
		slog.Error("Agent analysis failed", "error", err, "sessionID", sessionID)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to analyze session",
		})
	}

	updated, err := services.UpdateSessionAnalysis(ctx, sessionID, analysis.Summary, analysis.TopIntent)
	if err != nil {
		slog.Error("Failed to store analysis", "error", err, "sessionID", sessionID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to analyze session",
		})
	}

	return c.JSON(updated)
}
