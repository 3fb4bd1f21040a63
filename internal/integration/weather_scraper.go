// Package integration handles external service interactions
package integration

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abelzeko/weather-bot/internal/entities"
	"github.com/abelzeko/weather-bot/internal/filter"
	"github.com/abelzeko/weather-bot/internal/observability"
)

const (
	// DefaultWeatherBaseURL is the portal serving text forecasts
	DefaultWeatherBaseURL = "http://www.weather.com.cn"
	indexPath             = "/textFC/hb.shtml"
)

// Link is a named page of the portal, in page order
type Link struct {
	Name string
	URL  string // Relative to the portal base URL
}

// WeatherScraper provides functionality to scrape text forecasts from the portal
type WeatherScraper struct {
	baseURL     string
	fetcher     TextFetcher
	concurrency int
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// NewWeatherScraper creates a new forecast scraper
func NewWeatherScraper(baseURL string, fetcher TextFetcher, concurrency int, logger *zap.Logger, metrics *observability.Metrics) *WeatherScraper {
	if baseURL == "" {
		baseURL = DefaultWeatherBaseURL
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &WeatherScraper{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		fetcher:     fetcher,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metrics,
	}
}

func (ws *WeatherScraper) fetchDocument(ctx context.Context, path string) (Element, error) {
	text, err := ws.fetcher.FetchText(ctx, ws.baseURL+path)
	if err != nil {
		return nil, err
	}
	return NewDocumentFromString(text)
}

// GetProvincesList returns the province pages linked from the forecast index
func (ws *WeatherScraper) GetProvincesList(ctx context.Context) ([]Link, error) {
	doc, err := ws.fetchDocument(ctx, indexPath)
	if err != nil {
		return nil, err
	}
	header, err := first(doc, "div.lqcontentBoxheader")
	if err != nil {
		return nil, err
	}
	return collectLinks(header.Find(`a[target="_blank"]`)), nil
}

// GetAreasList returns the region pages (华北, 东北, ...) covering the whole country
func (ws *WeatherScraper) GetAreasList(ctx context.Context) ([]Link, error) {
	doc, err := ws.fetchDocument(ctx, indexPath)
	if err != nil {
		return nil, err
	}
	tabs, err := first(doc, "ul.lq_contentboxTab2")
	if err != nil {
		return nil, err
	}
	return collectLinks(tabs.Find("a")), nil
}

func collectLinks(anchors []Element) []Link {
	links := make([]Link, 0, len(anchors))
	for _, a := range anchors {
		href, ok := a.Attr("href")
		if !ok {
			continue
		}
		links = append(links, Link{Name: strings.TrimSpace(a.Text()), URL: href})
	}
	return links
}

// FetchWeather downloads and decodes a single forecast page
func (ws *WeatherScraper) FetchWeather(ctx context.Context, path string, f filter.Filter) ([]entities.WeatherRecord, error) {
	ws.logger.Debug("Fetching forecast page", zap.String("path", path))
	doc, err := ws.fetchDocument(ctx, path)
	if err != nil {
		return nil, err
	}
	records, err := DecodeForecast(doc, f)
	if err != nil {
		ws.metrics.DecodeFailures.WithLabelValues("forecast").Inc()
		return nil, fmt.Errorf("failed to decode forecast page %s: %w", path, err)
	}
	ws.metrics.RecordsDecoded.WithLabelValues("forecast").Add(float64(len(records)))
	ws.logger.Info("Decoded forecast page", zap.String("path", path), zap.Int("records", len(records)))
	return records, nil
}

// FetchWeathers decodes several pages concurrently and concatenates the
// results in the order of paths
func (ws *WeatherScraper) FetchWeathers(ctx context.Context, paths []string, f filter.Filter) ([]entities.WeatherRecord, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	results := make([][]entities.WeatherRecord, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ws.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			records, err := ws.FetchWeather(ctx, path, f)
			if err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []entities.WeatherRecord
	for _, records := range results {
		all = append(all, records...)
	}
	return all, nil
}

// GetNationWideWeathers decodes every region page of the index
func (ws *WeatherScraper) GetNationWideWeathers(ctx context.Context, f filter.Filter) ([]entities.WeatherRecord, error) {
	areas, err := ws.GetAreasList(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list areas: %w", err)
	}
	paths := make([]string, 0, len(areas))
	for _, a := range areas {
		paths = append(paths, a.URL)
	}
	ws.logger.Info("Fetching nation-wide forecast", zap.Int("areas", len(paths)))
	return ws.FetchWeathers(ctx, paths, f)
}
