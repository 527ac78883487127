package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/kitbuilder587/tubescout/internal/domain"
)

var (
	ErrMissingAPIKey       = errors.New("YouTube API key is required (set YOUTUBE_API_KEY or youtube_api_key in the secrets file)")
	ErrInvalidPort         = errors.New("SERVER_PORT must be between 1 and 65535")
	ErrInvalidSearchLimits = errors.New("SEARCH_DEFAULT_RESULTS must be between 1 and SEARCH_MAX_RESULTS")
	ErrMaxResultsTooLarge  = errors.New("SEARCH_MAX_RESULTS is above the supported maximum")
)

type Config struct {
	YouTube   YouTubeConfig
	Secrets   SecretsConfig
	Log       LogConfig
	Server    ServerConfig
	Telegram  TelegramConfig
	RateLimit RateLimitConfig
	Search    SearchConfig
}

type YouTubeConfig struct {
	APIKey          string
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures int
}

type SecretsConfig struct {
	File string
}

type LogConfig struct {
	Level string
	// Format is "json" or "console"; empty picks by level.
	Format string
}

type ServerConfig struct {
	Port int
}

// TelegramConfig is optional; the bot only starts when Token is set.
type TelegramConfig struct {
	Token string
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type SearchConfig struct {
	DefaultResults int
	MaxResults     int
	MaxEmptyPages  int
	// Timeout bounds one whole aggregation started by a front end.
	Timeout time.Duration
}

func Load() (*Config, error) {
	// a local .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		YouTube: YouTubeConfig{
			BaseURL:         os.Getenv("YOUTUBE_BASE_URL"),
			Timeout:         time.Duration(getEnvIntOrDefault("YOUTUBE_TIMEOUT_SEC", 30)) * time.Second,
			BreakerFailures: getEnvIntOrDefault("YOUTUBE_BREAKER_FAILURES", 5),
		},
		Secrets: SecretsConfig{
			File: getEnvOrDefault("SECRETS_FILE", "secrets.yaml"),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: os.Getenv("LOG_FORMAT"),
		},
		Server: ServerConfig{
			Port: getEnvIntOrDefault("SERVER_PORT", 8080),
		},
		Telegram: TelegramConfig{
			Token: os.Getenv("TELEGRAM_BOT_TOKEN"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 10),
		},
		Search: SearchConfig{
			DefaultResults: getEnvIntOrDefault("SEARCH_DEFAULT_RESULTS", domain.DefaultResultCap),
			MaxResults:     getEnvIntOrDefault("SEARCH_MAX_RESULTS", domain.MaxResultCap),
			MaxEmptyPages:  getEnvIntOrDefault("SEARCH_MAX_EMPTY_PAGES", 3),
			Timeout:        time.Duration(getEnvIntOrDefault("SEARCH_TIMEOUT_SEC", 120)) * time.Second,
		},
	}

	key, err := ResolveAPIKey(
		&SecretsFileProvider{Path: cfg.Secrets.File},
		&EnvProvider{Name: "YOUTUBE_API_KEY"},
	)
	if err != nil {
		return nil, err
	}
	cfg.YouTube.APIKey = key

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.YouTube.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return ErrInvalidPort
	}
	if c.Search.MaxResults > domain.MaxResultCap {
		return ErrMaxResultsTooLarge
	}
	if c.Search.DefaultResults < 1 || c.Search.DefaultResults > c.Search.MaxResults {
		return ErrInvalidSearchLimits
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
