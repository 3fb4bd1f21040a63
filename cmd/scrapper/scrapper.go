package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/abelzeko/weather-bot/internal/config"
	"github.com/abelzeko/weather-bot/internal/filter"
	"github.com/abelzeko/weather-bot/internal/integration"
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

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, "weather-scrapper")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Starting Weather Bot Scraper...")

	metrics := observability.NewMetrics()
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, log)
	}

	useCase, repo, err := newUseCase(cfg, log, metrics)
	if err != nil {
		log.Fatal("Failed to initialize scraper", zap.Error(err))
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Run immediately on startup
	if err := refresh(ctx, useCase, metrics, log); err != nil {
		log.Error("Initial data refresh failed", zap.Error(err))
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.ScrapeSchedule, func() {
		if err := refresh(ctx, useCase, metrics, log); err != nil {
			log.Error("Scheduled data refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		log.Fatal("Failed to set up cron job", zap.Error(err))
	}

	log.Info("Scraper has been scheduled", zap.String("schedule", cfg.ScrapeSchedule))
	c.Start()

	<-ctx.Done()
	log.Info("Shutting down scraper")
	<-c.Stop().Done()
}

// newUseCase wires the repository and the portal scrapers
func newUseCase(cfg *config.Config, log *zap.Logger, metrics *observability.Metrics) (*usecases.WeatherUseCase, *repository.SQLiteWeatherRepository, error) {
	f := filter.Filter{}
	if cfg.FilterFile != "" {
		var err error
		if f, err = filter.LoadFile(cfg.FilterFile); err != nil {
			return nil, nil, err
		}
		log.Info("Loaded region filter", zap.String("file", cfg.FilterFile))
	}

	repo, err := repository.NewSQLiteWeatherRepository(cfg.DBPath, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize repository: %w", err)
	}

	fetcherConfig := integration.FetcherConfig{
		Timeout:    cfg.HTTPTimeout,
		MaxRetries: cfg.FetchMaxRetries,
	}
	weatherFetcher := integration.NewFetcher(fetcherConfig, log.Named("weather-fetcher"), metrics)
	alarmFetcher := integration.NewFetcher(fetcherConfig, log.Named("alarm-fetcher"), metrics)

	useCase := usecases.NewWeatherUseCase(repo, usecases.Sources{
		Forecasts: integration.NewWeatherScraper(cfg.WeatherBaseURL, weatherFetcher, cfg.ScrapeConcurrency, log, metrics),
		Alarms:    integration.NewAlarmScraper(cfg.AlarmBaseURL, alarmFetcher, log, metrics),
	}, f, log)
	return useCase, repo, nil
}

// refresh updates forecasts and alarms; a failure of one does not stop the other
func refresh(ctx context.Context, useCase *usecases.WeatherUseCase, metrics *observability.Metrics, log *zap.Logger) error {
	start := time.Now()

	forecasts, forecastErr := useCase.RefreshForecasts(ctx)
	if forecastErr == nil {
		metrics.LastRefresh.WithLabelValues("forecast").SetToCurrentTime()
	}
	alarms, alarmErr := useCase.RefreshAlarms(ctx)
	if alarmErr == nil {
		metrics.LastRefresh.WithLabelValues("alarm").SetToCurrentTime()
	}

	log.Info("Data refresh finished",
		zap.Int("forecasts", forecasts),
		zap.Int("alarms", alarms),
		zap.Duration("took", time.Since(start)))
	return errors.Join(forecastErr, alarmErr)
}

func serveMetrics(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	log.Info("Serving metrics", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Metrics server failed", zap.Error(err))
	}
}
