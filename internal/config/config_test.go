package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "http://localhost:8000", cfg.APIBaseURL)
	assert.Equal(t, 2*time.Minute, cfg.UnreadPollEvery)
	assert.True(t, cfg.ChatEnabled)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STUMART_API_URL", "https://market.example.com")
	t.Setenv("STUMART_UNREAD_POLL", "30s")
	t.Setenv("STUMART_CHAT_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, "https://market.example.com", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.UnreadPollEvery)
	assert.False(t, cfg.ChatEnabled)
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("STUMART_UNREAD_POLL", "soon")
	t.Setenv("STUMART_CHAT_ENABLED", "maybe")

	cfg := Load()

	assert.Equal(t, 2*time.Minute, cfg.UnreadPollEvery)
	assert.True(t, cfg.ChatEnabled)
}
