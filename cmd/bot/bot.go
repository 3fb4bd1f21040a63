package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/abelzeko/weather-bot/internal/api"
	"github.com/abelzeko/weather-bot/internal/config"
	"github.com/abelzeko/weather-bot/internal/filter"
	"github.com/abelzeko/weather-bot/internal/integration"
	"github.com/abelzeko/weather-bot/internal/integration/openai"
	"github.com/abelzeko/weather-bot/internal/logger"
	"github.com/abelzeko/weather-bot/internal/observability"
	"github.com/abelzeko/weather-bot/internal/repository"
	"github.com/abelzeko/weather-bot/internal/usecases"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, "weather-bot")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Starting Weather Bot...")

	if cfg.TelegramBotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	sources := usecases.Sources{}
	if cfg.OpenAIAPIKey != "" {
		if sources.OpenAI, err = openai.NewOpenAIService(cfg.OpenAIAPIKey, log.Named("openai")); err != nil {
			log.Fatal("Failed to initialize OpenAI service", zap.Error(err))
		}
	} else {
		log.Warn("OPENAI_API_KEY is not set, free-text queries are disabled")
	}

	repo, err := repository.NewSQLiteWeatherRepository(cfg.DBPath, log)
	if err != nil {
		log.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	// The bot only fetches alarm details and location ids on demand
	metrics := observability.NewMetrics()
	fetcher := integration.NewFetcher(integration.FetcherConfig{
		Timeout:    cfg.HTTPTimeout,
		MaxRetries: cfg.FetchMaxRetries,
	}, log.Named("fetcher"), metrics)
	sources.Alarms = integration.NewAlarmScraper(cfg.AlarmBaseURL, fetcher, log, metrics)
	sources.Locations = integration.NewLocationIDs(cfg.WeatherBaseURL, fetcher)

	useCase := usecases.NewWeatherUseCase(repo, sources, filter.Filter{}, log)

	telegramBot, err := api.NewTelegramBot(cfg.TelegramBotToken, useCase, log.Named("telegram"))
	if err != nil {
		log.Fatal("Failed to initialize Telegram bot", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	telegramBot.Start(ctx)
}
