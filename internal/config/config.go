// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds the settings of the bot and the scrapper, populated from
// environment variables.
type Config struct {
	TelegramBotToken string
	OpenAIAPIKey     string // Empty disables free-text queries
	DBPath           string

	WeatherBaseURL    string
	AlarmBaseURL      string
	FilterFile        string // Optional YAML region/date filter
	ScrapeSchedule    string
	ScrapeConcurrency int
	HTTPTimeout       time.Duration
	FetchMaxRetries   uint64
	MetricsAddr       string // Empty disables the metrics endpoint

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables, applying defaults
// where unset. Variables from envFile are loaded first when the file exists;
// variables already set in the environment take precedence.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	timeout, err := time.ParseDuration(envOrDefault("HTTP_TIMEOUT", "15s"))
	if err != nil || timeout <= 0 {
		return nil, errors.New("invalid HTTP_TIMEOUT")
	}
	concurrency, err := strconv.Atoi(envOrDefault("SCRAPE_CONCURRENCY", "4"))
	if err != nil || concurrency < 1 {
		return nil, errors.New("invalid SCRAPE_CONCURRENCY")
	}
	retries, err := strconv.ParseUint(envOrDefault("FETCH_MAX_RETRIES", "3"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid FETCH_MAX_RETRIES")
	}

	cfg := &Config{
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		DBPath:            envOrDefault("DB_PATH", "data/weather.db"),
		WeatherBaseURL:    envOrDefault("WEATHER_BASE_URL", "http://www.weather.com.cn"),
		AlarmBaseURL:      envOrDefault("ALARM_BASE_URL", "https://product.weather.com.cn"),
		FilterFile:        os.Getenv("FILTER_FILE"),
		ScrapeSchedule:    envOrDefault("SCRAPE_SCHEDULE", "0 * * * *"),
		ScrapeConcurrency: concurrency,
		HTTPTimeout:       timeout,
		FetchMaxRetries:   retries,
		MetricsAddr:       envOrDefault("METRICS_ADDR", ":9090"),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		LogFormat:         envOrDefault("LOG_FORMAT", "json"),
	}

	if _, err := cron.ParseStandard(cfg.ScrapeSchedule); err != nil {
		return nil, fmt.Errorf("invalid SCRAPE_SCHEDULE: %w", err)
	}
	return cfg, nil
}

// envOrDefault returns the value of key, or fallback when it is unset.
// METRICS_ADDR may be set to an empty string on purpose.
func envOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
