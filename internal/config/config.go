// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // Zone database for hosts without one.
)

// MaxFetchLimit is the largest batch the Bot API returns from getUpdates.
const MaxFetchLimit = 100

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	Conversation     string
	ChatID           int64
	FetchLimit       int
	StatePath        string
	OrgFilePath      string
	OrgTag           string
	Location         *time.Location
	DatabasePath     string
	LinkPreviews     bool
	LogLevel         string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	limit := MaxFetchLimit
	if raw := os.Getenv("TELEGRAM_FETCH_LIMIT"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxFetchLimit {
			return nil, fmt.Errorf("TELEGRAM_FETCH_LIMIT must be between 1 and %d, got %q", MaxFetchLimit, raw)
		}
		limit = n
	}

	var chatID int64
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", raw, err)
		}
		chatID = id
	}

	tz := envOrDefault("ORG_TIMEZONE", "Europe/London")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid ORG_TIMEZONE %q: %w", tz, err)
	}

	previews := true
	if raw := os.Getenv("LINK_PREVIEWS"); raw != "" {
		previews, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid LINK_PREVIEWS %q: %w", raw, err)
		}
	}

	return &Config{
		TelegramBotToken: token,
		Conversation:     envOrDefault("TELEGRAM_CONVERSATION", "RTM"),
		ChatID:           chatID,
		FetchLimit:       limit,
		StatePath:        envOrDefault("STATE_PATH", "./data/state.json"),
		OrgFilePath:      envOrDefault("ORG_FILE_PATH", "./data/telegram.org"),
		OrgTag:           os.Getenv("ORG_TAG"),
		Location:         loc,
		DatabasePath:     envOrDefault("DATABASE_PATH", "./data/telegram2org.db"),
		LinkPreviews:     previews,
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
	}, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
