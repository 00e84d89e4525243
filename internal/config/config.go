package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/pkg/errors"
)

// Config aggregates every setting of both binaries.
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	History HistoryConfig
	Client  ClientConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	hist, err := loadHistoryConfig()
	if err != nil {
		return nil, err
	}

	client, err := loadClientConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, History: hist, Client: client}, nil
}

// ServerConfig describes the reply server's listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// ":8080" and "127.0.0.1:8080" are taken as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, errors.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the optional chat model used for replies.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether a model and credentials were provided.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates the Ark chat model described by c.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, errors.New("ark credentials or model missing: set ARK_API_KEY or ARK_ACCESS_KEY/ARK_SECRET_KEY together with Model")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// HistoryConfig selects where the server keeps per-user history.
type HistoryConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
	TTL           time.Duration
	// Limit caps the entries kept per user. Zero keeps everything.
	Limit         int
}

// UseRedis reports whether a redis address was configured.
func (c HistoryConfig) UseRedis() bool {
	return c.RedisAddr != ""
}

func loadHistoryConfig() (HistoryConfig, error) {
	db := 0
	if override, err := parseOptionalIntEnv("HISTORY_REDIS_DB"); err != nil {
		return HistoryConfig{}, err
	} else if override != nil {
		db = *override
	}

	ttl, err := parseDurationEnv("HISTORY_TTL", 0)
	if err != nil {
		return HistoryConfig{}, err
	}

	limit := 0
	if override, err := parseOptionalIntEnv("HISTORY_LIMIT"); err != nil {
		return HistoryConfig{}, err
	} else if override != nil {
		limit = *override
	}
	if limit < 0 {
		limit = 0
	}

	return HistoryConfig{
		RedisAddr:     strings.TrimSpace(os.Getenv("HISTORY_REDIS_ADDR")),
		RedisPassword: os.Getenv("HISTORY_REDIS_PASSWORD"),
		RedisDB:       db,
		KeyPrefix:     getEnvOrDefault("HISTORY_REDIS_PREFIX", "zchat:history:"),
		TTL:           ttl,
		Limit:         limit,
	}, nil
}

// ClientConfig describes how the chat client reaches the reply server.
type ClientConfig struct {
	BaseURL   string
	UserID    string
	Timeout   time.Duration
	Serialize bool
}

func loadClientConfig() (ClientConfig, error) {
	timeout, err := parseDurationEnv("CHAT_HTTP_TIMEOUT", 0)
	if err != nil {
		return ClientConfig{}, err
	}

	serialize, err := parseBoolEnv("CHAT_SERIALIZE", false)
	if err != nil {
		return ClientConfig{}, err
	}

	return ClientConfig{
		BaseURL:   getEnvOrDefault("CHAT_API_BASE_URL", "http://localhost:8080"),
		UserID:    strings.TrimSpace(os.Getenv("CHAT_USER_ID")),
		Timeout:   timeout,
		Serialize: serialize,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.Wrapf(err, "invalid %s value %q", key, raw)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s value %q", key, raw)
	}
	if val < 0 {
		return 0, errors.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s value %q", key, value)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s value %q", key, value)
	}
	return &val, nil
}
