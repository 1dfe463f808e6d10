package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string

	// Genesys Cloud upstream
	GenesysClientID     string
	GenesysClientSecret string
	GenesysRegion       string
	QueueName           string

	// Dashboard refresh
	RefreshInterval time.Duration

	// Authentication
	SkipAuth bool
	JWKSURL  string

	// Persistence
	DynamoMode     string // local, aws or none
	DynamoEndpoint string
	DynamoRegion   string

	// WebSocket tuning
	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		GenesysClientID:     getEnv("GENESYS_CLIENT_ID", ""),
		GenesysClientSecret: getEnv("GENESYS_CLIENT_SECRET", ""),
		GenesysRegion:       getEnv("GENESYS_REGION", "mypurecloud.ae"),
		QueueName:           getEnv("QUEUE_NAME", ""),

		SkipAuth: getEnv("SKIP_AUTH", "false") == "true",
		JWKSURL:  getEnv("JWKS_URL", ""),

		DynamoMode:     getEnv("DYNAMO_MODE", "none"),
		DynamoEndpoint: getEnv("DYNAMO_ENDPOINT", "http://localhost:8000"),
		DynamoRegion:   getEnv("DYNAMO_REGION", "eu-central-1"),
	}

	refreshSeconds, err := strconv.Atoi(getEnv("REFRESH_INTERVAL", "300"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	config.RefreshInterval = time.Duration(refreshSeconds) * time.Second

	// Parse WebSocket timeouts
	wsReadTimeout, err := strconv.Atoi(getEnv("WS_READ_TIMEOUT", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_READ_TIMEOUT: %w", err)
	}
	config.WSReadTimeout = time.Duration(wsReadTimeout) * time.Second

	wsWriteTimeout, err := strconv.Atoi(getEnv("WS_WRITE_TIMEOUT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_WRITE_TIMEOUT: %w", err)
	}
	config.WSWriteTimeout = time.Duration(wsWriteTimeout) * time.Second

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
