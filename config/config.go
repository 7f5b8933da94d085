// Package config provides configuration for the tripbot backend.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the backend configuration.
type Config struct {
	// Server settings
	HTTPPort      int
	AllowedOrigin string

	// Database
	DatabaseURL string

	// OpenAI
	OpenAIAPIKey   string
	Model          string
	EmbeddingModel string

	// Amadeus fare search
	AmadeusBaseURL      string
	AmadeusClientID     string
	AmadeusClientSecret string

	// Google Vision
	VisionAPIKey string

	// Media
	MediaDir string

	// Timeouts
	LLMTimeout  time.Duration
	ToolTimeout time.Duration

	// Session cookie lifetime
	SessionMaxAge time.Duration
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort:            getEnvInt("HTTP_PORT", 5001),
		// Cookies require a concrete origin, never a wildcard.
		AllowedOrigin:       getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),
		DatabaseURL:         getEnv("DATABASE_URL", "file:tripbot.db?cache=shared&mode=rwc"),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		Model:               getEnv("OPENAI_MODEL", "gpt-4o"),
		EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		AmadeusBaseURL:      getEnv("AMADEUS_BASE_URL", "https://api.amadeus.com"),
		AmadeusClientID:     os.Getenv("AMADEUS_CLIENT_ID"),
		AmadeusClientSecret: os.Getenv("AMADEUS_CLIENT_SECRET"),
		VisionAPIKey:        os.Getenv("VISION_API_KEY"),
		MediaDir:            getEnv("MEDIA_DIR", "data/media"),
		LLMTimeout:          time.Duration(getEnvInt("LLM_TIMEOUT_MS", 30000)) * time.Millisecond,
		ToolTimeout:         time.Duration(getEnvInt("TOOL_TIMEOUT_MS", 15000)) * time.Millisecond,
		SessionMaxAge:       time.Duration(getEnvInt("SESSION_MAX_AGE_MS", int((24*time.Hour).Milliseconds()))) * time.Millisecond,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
