package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "Model", "ARK_TEMPERATURE",
		"ARK_TOP_P", "ARK_MAX_TOKENS", "HISTORY_REDIS_ADDR", "HISTORY_REDIS_DB", "HISTORY_TTL",
		"HISTORY_LIMIT", "CHAT_API_BASE_URL", "CHAT_USER_ID", "CHAT_HTTP_TIMEOUT", "CHAT_SERIALIZE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.False(t, cfg.AI.Enabled())
	assert.False(t, cfg.History.UseRedis())
	assert.Zero(t, cfg.History.Limit, "history is unbounded unless HISTORY_LIMIT is set")
	assert.Equal(t, "http://localhost:8080", cfg.Client.BaseURL)
	assert.Empty(t, cfg.Client.UserID)
	assert.Zero(t, cfg.Client.Timeout)
	assert.False(t, cfg.Client.Serialize)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("ARK_API_KEY", "key")
	t.Setenv("Model", "ep-123")
	t.Setenv("ARK_MAX_TOKENS", "256")
	t.Setenv("HISTORY_REDIS_ADDR", "localhost:6379")
	t.Setenv("HISTORY_TTL", "1h")
	t.Setenv("CHAT_API_BASE_URL", "http://chat.internal:8000")
	t.Setenv("CHAT_USER_ID", "test-user")
	t.Setenv("CHAT_HTTP_TIMEOUT", "30s")
	t.Setenv("CHAT_SERIALIZE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.True(t, cfg.AI.Enabled())
	require.NotNil(t, cfg.AI.MaxTokens)
	assert.Equal(t, 256, *cfg.AI.MaxTokens)
	assert.True(t, cfg.History.UseRedis())
	assert.Equal(t, time.Hour, cfg.History.TTL)
	assert.Equal(t, "http://chat.internal:8000", cfg.Client.BaseURL)
	assert.Equal(t, "test-user", cfg.Client.UserID)
	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
	assert.True(t, cfg.Client.Serialize)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":              "80 80",
		"ARK_TEMPERATURE":   "warm",
		"HISTORY_LIMIT":     "many",
		"CHAT_HTTP_TIMEOUT": "-1s",
		"CHAT_SERIALIZE":    "sometimes",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
