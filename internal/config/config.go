package config

import (
	"os"
	"time"
)

type Config struct {
	HTTPAddr  string
	JWTSecret string
	LogLevel  string
	CacheTTL  time.Duration
}

func Load() Config {
	return Config{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
		JWTSecret: getEnv("JWT_SECRET", "dev-secret"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		CacheTTL:  getDuration("VOUCHER_CACHE_TTL", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
