package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env             string
	APIBaseURL      string
	UnreadPollEvery time.Duration
	// ChatEnabled gates the live chat transport. Builds/platforms without a
	// usable websocket runtime set this false and the chat screen degrades to
	// an unavailable notice instead of dialing.
	ChatEnabled bool
	HTTPTimeout time.Duration
}

func Load() *Config {
	return &Config{
		Env:             getEnv("STUMART_ENV", "dev"),
		APIBaseURL:      getEnv("STUMART_API_URL", "http://localhost:8000"),
		UnreadPollEvery: getDuration("STUMART_UNREAD_POLL", 2*time.Minute),
		ChatEnabled:     getBool("STUMART_CHAT_ENABLED", true),
		HTTPTimeout:     getDuration("STUMART_HTTP_TIMEOUT", 15*time.Second),
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func getBool(key string, fallback bool) bool {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
