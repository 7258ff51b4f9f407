package config

import (
	"log/slog"
	"os"
)

type Config struct {
	// MongoDB configuration
	MongoURI     string
	DatabaseName string

	// Public base URLs baked into the served loader script
	APIBaseURL    string
	WidgetBaseURL string

	// AI agent service (request/response collaborator)
	AgentEndpoint string
	AgentAPIKey   string
	AgentModel    string

	// Server configuration
	Port string
}

func LoadConfig() *Config {
	cfg := &Config{
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DatabaseName:  getEnv("MONGO_DB_NAME", "taimako_widget"),
		APIBaseURL:    getEnv("API_BASE_URL", "http://localhost:8080"),
		WidgetBaseURL: getEnv("WIDGET_BASE_URL", "http://localhost:3000"),
		AgentEndpoint: getEnv("AGENT_ENDPOINT", ""),
		AgentAPIKey:   getEnv("AGENT_API_KEY", ""),
		AgentModel:    getEnv("AGENT_MODEL", "claude-3-5-haiku-latest"),
		Port:          getEnv("PORT", "8080"),
	}

	// Validate required configuration
	if cfg.MongoURI == "" {
		slog.Error("MONGO_URI not set")
	}
	if cfg.AgentEndpoint == "" {
		slog.Warn("AGENT_ENDPOINT not set, responder runs in echo mode")
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
