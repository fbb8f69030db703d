package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the binaries read from the environment.
type Config struct {
	DatabaseURL string
	JWTSecret   string
	ListenAddr  string
	TokenTTL    time.Duration

	// SweepInterval is the cadence of the periodic maintenance driver.
	SweepInterval time.Duration
	// OverdueLogAge is how long a maintenance log may stay open before the
	// sweep flags it.
	OverdueLogAge time.Duration
	// NotificationRetention bounds how long read notifications are kept.
	NotificationRetention time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads .env if present, then the environment. DATABASE_URL and
// JWT_SECRET are mandatory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		ListenAddr:            envOr("LISTEN_ADDR", ":8080"),
		TokenTTL:              envDuration("TOKEN_TTL", 24*time.Hour),
		SweepInterval:         envDuration("SWEEP_INTERVAL", time.Hour),
		OverdueLogAge:         envDuration("OVERDUE_LOG_AGE", 24*time.Hour),
		NotificationRetention: envDuration("NOTIFICATION_RETENTION", 30*24*time.Hour),
		RateLimitRPS:          envFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:        envInt("RATE_LIMIT_BURST", 40),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is empty")
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
