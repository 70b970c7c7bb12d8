package config

import (
	"os"
	"strconv"
	"time"
)

var (
	ADDR        = getEnv("ADDR", ":80")
	TX_DB_URL   = getEnv("TX_DB_URL", "127.0.0.1:3003")
	DATA_DB_URL = getEnv("DATA_DB_URL", "127.0.0.1:3306")
	REDIS_URL   = getEnv("REDIS_URL", "127.0.0.1:6379")

	PRICE_FEED_URL       = getEnv("PRICE_FEED_URL", "")
	PRICE_POLL_INTERVAL  = getEnvDuration("PRICE_POLL_INTERVAL", 15*time.Second)
	MAX_PRICE_AGE        = getEnvDuration("MAX_PRICE_AGE", 2*time.Minute)
	PLATFORM_FEE_PERCENT = getEnvFloat("PLATFORM_FEE_PERCENT", 0.5)
	QUOTE_TTL_SECONDS    = getEnvInt("QUOTE_TTL_SECONDS", 15)
)

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return def
}
