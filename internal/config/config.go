package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the client.
type Config struct {
	APIURL      string
	WSURL       string
	Env         string
	DataDir     string
	MetricsAddr string // empty disables the debug metrics listener
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		APIURL:      getEnv("STAYHUB_API_URL", "https://api.stayhub.app"),
		WSURL:       getEnv("STAYHUB_WS_URL", "wss://api.stayhub.app/ws"),
		Env:         getEnv("ENV", "development"),
		DataDir:     os.Getenv("STAYHUB_DATA_DIR"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
	}

	if cfg.DataDir == "" {
		home, _ := os.UserHomeDir()
		cfg.DataDir = filepath.Join(home, ".stayhub")
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
