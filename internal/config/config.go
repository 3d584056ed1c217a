package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultGatewayURL is the mobile push gateway batch-send endpoint.
const DefaultGatewayURL = "https://exp.host/--/api/v2/push/send"

// Config holds all configuration for the application. It is loaded once at
// startup and never mutated afterwards.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	// Outbound delivery
	GatewayURL     string        // mobile gateway endpoint, overridable for tests
	SendTimeout    time.Duration // per outbound call (gateway batch, each browser POST)
	WebConcurrency int           // cap on simultaneous in-flight browser sends

	// VAPID sender identity, base64url-encoded key material
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	// Shared secret gating the notify path (scheduled invocations included)
	ServiceSecret string
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SQLitePath:      os.Getenv("SQLITE_PATH"),
		RedisURL:        os.Getenv("REDIS_URL"),
		GatewayURL:      getEnv("PUSH_GATEWAY_URL", DefaultGatewayURL),
		SendTimeout:     getDuration("SEND_TIMEOUT", 10*time.Second),
		WebConcurrency:  getInt("WEB_CONCURRENCY", 8),
		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubject:    getEnv("VAPID_SUBJECT", "mailto:push@famcash.app"),
		ServiceSecret:   os.Getenv("SERVICE_SECRET"),
	}

	// In production, require persistence, keys, and the invocation secret
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "" {
			panic("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY are required in production")
		}
		if cfg.ServiceSecret == "" {
			panic("SERVICE_SECRET is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
