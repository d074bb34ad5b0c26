// Package config loads service configuration from the environment once at
// startup. The result is treated as immutable.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	Port    string
	DataDir string

	// Auth
	JWKSURL string

	// Google OAuth
	GoogleClientID      string
	GoogleClientSecret  string
	GoogleTokenEndpoint string

	// Microsoft OAuth (optional; mail-only provider)
	MicrosoftClientID      string
	MicrosoftClientSecret  string
	MicrosoftTokenEndpoint string

	// Generative text
	GeminiAPIKey   string
	GeminiEndpoint string

	// Telemetry (optional)
	NATSURL string

	// Sync tuning
	SyncDaysBack      int
	SyncBatchSize     int
	SyncBatchInterval time.Duration
	HTTPTimeout       time.Duration
}

// Load reads the configuration from environment variables. Missing required
// variables are reported together in one error.
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string
	required := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg.JWKSURL = required("JWKS_URL")
	cfg.GoogleClientID = required("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = required("GOOGLE_CLIENT_SECRET")

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.Port = getEnvString("PORT", "8080")
	cfg.DataDir = getEnvString("DATA_DIR", "data")
	cfg.GoogleTokenEndpoint = getEnvString("GOOGLE_TOKEN_ENDPOINT", "https://oauth2.googleapis.com/token")
	cfg.MicrosoftClientID = os.Getenv("MICROSOFT_CLIENT_ID")
	cfg.MicrosoftClientSecret = os.Getenv("MICROSOFT_CLIENT_SECRET")
	cfg.MicrosoftTokenEndpoint = getEnvString("MICROSOFT_TOKEN_ENDPOINT", "https://login.microsoftonline.com/common/oauth2/v2.0/token")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.GeminiEndpoint = getEnvString("GEMINI_ENDPOINT", "https://generativelanguage.googleapis.com")
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.SyncDaysBack = getEnvInt("SYNC_DAYS_BACK", 90)
	cfg.SyncBatchSize = getEnvInt("SYNC_BATCH_SIZE", 50)
	cfg.SyncBatchInterval = getEnvDuration("SYNC_BATCH_INTERVAL", 200*time.Millisecond)
	cfg.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", 30*time.Second)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
