package config

import (
	"fmt"
	"os"
	"time"

	"battle-tracker/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	AccessKey     string
	ServerBaseURL string
	PushURL       string
	DBPath        string
	ServerPort    string
	LogLevel      string
	PollInterval  time.Duration
	DebounceDelay time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		AccessKey:     getEnv("ACCESS_KEY", ""),
		ServerBaseURL: getEnv("STATS_SERVER_URL", ""),
		PushURL:       getEnv("STATS_PUSH_URL", ""),
		DBPath:        getEnv("DB_PATH", "battles.db"),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PollInterval:  getDuration("POLL_INTERVAL", constants.PollInterval),
		DebounceDelay: getDuration("DEBOUNCE_DELAY", constants.DebounceDelay),
	}

	if cfg.AccessKey == "" {
		return nil, fmt.Errorf("ACCESS_KEY is required")
	}
	if cfg.ServerBaseURL == "" {
		return nil, fmt.Errorf("STATS_SERVER_URL is required")
	}

	logger.Info().
		Str("server_base_url", cfg.ServerBaseURL).
		Str("push_url", cfg.PushURL).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("poll_interval", cfg.PollInterval).
		Dur("debounce_delay", cfg.DebounceDelay).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
