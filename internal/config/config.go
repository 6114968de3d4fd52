// Package config provides environment-based configuration.
//
// Loads from a .env file when present (godotenv), maps variables onto
// the Config struct via go-simpler/env struct tags, and validates
// required fields and ranges.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv        string `env:"APP_ENV" default:"development"`
	Port          string `env:"PORT" default:"8080"`
	DiscordToken  string `env:"DISCORD_TOKEN"`
	CommandPrefix string `env:"COMMAND_PREFIX" default:"!"`
	RedisURL      string `env:"REDIS_URL"`
	DataFile      string `env:"DATA_FILE" default:"server_tracking.json"`
	LogLevel      string `env:"LOG_LEVEL" default:"info"`
	LogFormat     string `env:"LOG_FORMAT" default:"text"`

	ReminderThresholdDays int           `env:"REMINDER_THRESHOLD_DAYS" default:"2"`
	ReminderInterval      time.Duration `env:"REMINDER_INTERVAL" default:"12h"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is required")
	}
	if cfg.CommandPrefix == "" {
		return errors.New("COMMAND_PREFIX must not be empty")
	}
	if cfg.ReminderThresholdDays < 1 {
		return fmt.Errorf("REMINDER_THRESHOLD_DAYS must be at least 1, got %d", cfg.ReminderThresholdDays)
	}
	if cfg.ReminderInterval < time.Minute {
		return fmt.Errorf("REMINDER_INTERVAL must be at least 1m, got %s", cfg.ReminderInterval)
	}
	// Without REDIS_URL, state goes to the JSON data file.
	if cfg.RedisURL == "" && cfg.DataFile == "" {
		return errors.New("DATA_FILE is required when REDIS_URL is not set")
	}
	return nil
}
