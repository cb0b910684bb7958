package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with environment variables. A .env file in the
// working directory is loaded first if present (ignored in production where
// real environment variables are set).
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	cfg.DatabaseDSN = getEnv("CARTSYNC_DATABASE_DSN", cfg.DatabaseDSN)
	cfg.AuthURL = getEnv("CARTSYNC_AUTH_URL", cfg.AuthURL)
	cfg.AuthAnonKey = getEnv("CARTSYNC_AUTH_ANON_KEY", cfg.AuthAnonKey)
	cfg.NotifyChannel = getEnv("CARTSYNC_NOTIFY_CHANNEL", cfg.NotifyChannel)
	cfg.PromoteAfter = getEnvAsDuration("CARTSYNC_PROMOTE_AFTER", cfg.PromoteAfter)
	cfg.SweepInterval = getEnvAsDuration("CARTSYNC_SWEEP_INTERVAL", cfg.SweepInterval)
	cfg.PrefsPath = getEnv("CARTSYNC_PREFS_PATH", cfg.PrefsPath)
	cfg.SeedFile = getEnv("CARTSYNC_SEED_FILE", cfg.SeedFile)
	cfg.LogLevel = getEnv("CARTSYNC_LOG_LEVEL", cfg.LogLevel)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}
