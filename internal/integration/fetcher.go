package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/abelzeko/weather-bot/internal/observability"
)

// TextFetcher retrieves the decoded text of a URL
type TextFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// StatusError is an unexpected HTTP status from the portal
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d %s for %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// IsNotFound reports whether err is a 404 from the portal
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// FetcherConfig tunes timeouts and retries of a Fetcher
type FetcherConfig struct {
	Timeout         time.Duration
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Fetcher downloads portal pages with retries and a circuit breaker, and
// converts them to UTF-8 whatever charset the portal declared
type Fetcher struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[string]
	config  FetcherConfig
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewFetcher creates a new portal fetcher
func NewFetcher(cfg FetcherConfig, logger *zap.Logger, metrics *observability.Metrics) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "weather-portal",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return statusErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	return &Fetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		config:  cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// FetchText downloads url and returns its body as UTF-8 text.
// 5xx responses and network errors are retried; other statuses are returned
// as *StatusError immediately.
func (f *Fetcher) FetchText(ctx context.Context, url string) (string, error) {
	start := time.Now()
	defer func() {
		f.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.config.InitialInterval
	bo.MaxInterval = f.config.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, f.config.MaxRetries), ctx)

	var text string
	operation := func() error {
		body, err := f.breaker.Execute(func() (string, error) {
			return f.get(ctx, url)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			var statusErr *StatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode < http.StatusInternalServerError {
				return backoff.Permanent(err)
			}
			f.logger.Debug("Retrying portal request", zap.String("url", url), zap.Error(err))
			return err
		}
		text = body
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		f.metrics.PagesFetched.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	f.metrics.PagesFetched.WithLabelValues("success").Inc()
	return text, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", backoff.Permanent(err)
	}
	res, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", &StatusError{URL: url, StatusCode: res.StatusCode}
	}

	reader, err := charset.NewReader(res.Body, res.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve charset: %w", err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}
