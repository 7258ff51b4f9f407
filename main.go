package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"taimako-widget/config"
	"taimako-widget/handlers"
	"taimako-widget/middleware"
	"taimako-widget/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found")
	}

	// Initialize structured logger
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(logHandler))

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := services.InitMongoDB(ctx, cfg.MongoURI)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer db.Disconnect(ctx)

	// Initialize services
	services.InitServices(db, cfg.DatabaseName)

	// Initialize AI agent collaborator client
	services.InitResponder(cfg.AgentEndpoint, cfg.AgentAPIKey, cfg.AgentModel)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			slog.Error("Request error", "error", err, "status", code)
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())

	// Widget endpoints are embedded on arbitrary third-party sites; per-widget
	// domain whitelisting narrows this where configured
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept",
		ExposeHeaders: "Content-Length, Content-Type",
		MaxAge:        86400, // 24 hours
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path}\n",
	}))

	// Bootstrap loader script for host pages
	app.Get("/widget.js", handlers.LoaderScript(cfg))

	// Widget API consumed by the embedded frame
	requireOrigin := middleware.RequireAllowedOrigin(cfg)
	widgets := app.Group("/widgets")
	widgets.Get("/config/:widgetID", handlers.GetWidgetConfig)
	widgets.Post("/guest/start/:widgetID", requireOrigin, handlers.StartGuest)
	widgets.Post("/guest/session/init/:widgetID", requireOrigin, handlers.InitGuestSession)
	widgets.Post("/chat/:widgetID/session/:sessionID", requireOrigin, handlers.ContinueSession)
	widgets.Get("/sessions/:guestID/history", handlers.GetGuestSessionHistory)
	widgets.Get("/session/:sessionID/messages", handlers.GetSessionMessages)
	widgets.Post("/session/:sessionID/analyze", handlers.AnalyzeSession)

	// Dashboard live feed
	dashboard := app.Group("/api/dashboard")
	dashboard.Get("/ws", handlers.WebSocketUpgrade, websocket.New(handlers.HandleDashboardSocket))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "taimako-widget",
		})
	})

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	slog.Info("Server starting", "port", port)
	if err := app.Listen(":" + port); err != nil {
		slog.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
}
