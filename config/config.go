package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// HTTP
	ListenAddr  string
	MetricsAddr string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string

	// Indicator cache
	CacheTTL time.Duration

	// VWAP session handling (two deployments disagree; both selectable)
	VWAPResetOnGap   bool
	VWAPGapThreshold float64 // seconds

	// Auth
	AdminTOTPSecret string // empty disables the admin key-issuance endpoint
	RateLimitPerMin int

	// Search
	SearchMaxResults int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/bars.db"),

		CacheTTL: time.Duration(getEnvInt("CACHE_TTL_SECONDS", 60)) * time.Second,

		VWAPResetOnGap:   getEnvBool("VWAP_RESET_ON_GAP", false),
		VWAPGapThreshold: float64(getEnvInt("VWAP_GAP_THRESHOLD_SECONDS", 4*3600)),

		AdminTOTPSecret: getEnv("ADMIN_TOTP_SECRET", ""),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 300),

		SearchMaxResults: getEnvInt("SEARCH_MAX_RESULTS", 20),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid integer for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid boolean for %s: %q, using %v", key, v, fallback)
		return fallback
	}
	return b
}
