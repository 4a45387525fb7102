package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Text context modes.
const (
	ContextModeLatest = "latest"
	ContextModeFull   = "full"
)

type Config struct {
	// Core
	BotToken    string `env:"BOT_TOKEN"`
	DatabaseURL string `env:"DATABASE_URL"`
	StateFile   string `env:"STATE_FILE"`

	// Generation endpoints
	TextAPIURL     string `env:"TEXT_API_URL" envDefault:"https://text.pollinations.ai/"`
	TextOpenAIURL  string `env:"TEXT_OPENAI_URL" envDefault:"https://text.pollinations.ai/openai"`
	TextModelsURL  string `env:"TEXT_MODELS_URL" envDefault:"https://text.pollinations.ai/models"`
	ImageAPIURL    string `env:"IMAGE_API_URL" envDefault:"https://image.pollinations.ai/prompt/"`
	ImageModelsURL string `env:"IMAGE_MODELS_URL" envDefault:"https://image.pollinations.ai/models"`
	ImageReferrer  string `env:"IMAGE_REFERRER" envDefault:"chat-create"`

	// Generation behavior
	TextContextMode    string        `env:"TEXT_CONTEXT_MODE" envDefault:"latest"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"90s"`
	StreamWordDelay    time.Duration `env:"STREAM_WORD_DELAY" envDefault:"50ms"`
	StreamEditInterval time.Duration `env:"STREAM_EDIT_INTERVAL" envDefault:"1s"`
	ModelCacheTTL      time.Duration `env:"MODEL_CACHE_TTL" envDefault:"1h"`

	// Bot behavior
	RateLimitPerMinute int  `env:"RATE_LIMIT_PER_MINUTE" envDefault:"10"`
	DropPendingUpdates bool `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`

	// Logging
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	LogTelegramChatID int64  `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError     int    `env:"LOG_TOPIC_ERROR"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStatePath()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.TextContextMode {
	case ContextModeLatest, ContextModeFull:
	default:
		return fmt.Errorf("invalid TEXT_CONTEXT_MODE %q: want %q or %q", c.TextContextMode, ContextModeLatest, ContextModeFull)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.StreamWordDelay < 0 {
		return fmt.Errorf("STREAM_WORD_DELAY must not be negative, got %s", c.StreamWordDelay)
	}
	if c.StreamEditInterval <= 0 {
		return fmt.Errorf("STREAM_EDIT_INTERVAL must be positive, got %s", c.StreamEditInterval)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative, got %d", c.RateLimitPerMinute)
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DefaultStatePath returns the state file location in the user's home directory.
func DefaultStatePath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return ".chatcreate.json"
	}
	return filepath.Join(dir, ".chatcreate.json")
}
