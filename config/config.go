package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

var ErrMissingSecret = errors.New("SESSION_SECRET is required")

type Config struct {
	DBPath            string
	ServerPort        string
	ServerBaseURL     string
	LogLevel          string
	SessionSecret     string
	DiscordWebhookURL string
	Timezone          string

	// how often the live runner ticks, and how many simulated seconds pass per real second
	TickInterval time.Duration
	SimSpeed     float64

	ScheduleInterval time.Duration
	CardSize         int
	CardStartHour    int
	BoutSpacing      time.Duration
	BalanceWorkers   int
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:            getEnv("DB_PATH", "./cagefight.db"),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		ServerBaseURL:     getEnv("SERVER_BASE_URL", "http://localhost:8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		DiscordWebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),
		Timezone:          getEnv("TIMEZONE", "America/Chicago"),
		TickInterval:      getDuration("TICK_INTERVAL", 100*time.Millisecond),
		SimSpeed:          getFloat("SIM_SPEED", 1),
		ScheduleInterval:  getDuration("SCHEDULE_INTERVAL", 30*time.Second),
		CardSize:          getInt("CARD_SIZE", 6),
		CardStartHour:     getInt("CARD_START_HOUR", 12),
		BoutSpacing:       getDuration("BOUT_SPACING", 30*time.Minute),
		BalanceWorkers:    getInt("BALANCE_WORKERS", 4),
	}

	if cfg.SessionSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.SimSpeed <= 0 {
		return nil, fmt.Errorf("SIM_SPEED must be positive, got %v", cfg.SimSpeed)
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("TICK_INTERVAL must be positive, got %v", cfg.TickInterval)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("timezone", cfg.Timezone).
		Dur("tick_interval", cfg.TickInterval).
		Float64("sim_speed", cfg.SimSpeed).
		Int("card_size", cfg.CardSize).
		Bool("discord", cfg.DiscordWebhookURL != "").
		Msg("configuration loaded")

	return cfg, nil
}

// Location is the zone the daily card is scheduled in
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SimStep is the simulated time one live tick advances
func (c *Config) SimStep() float64 {
	return c.TickInterval.Seconds() * c.SimSpeed
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
