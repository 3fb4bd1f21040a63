package integration

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/abelzeko/weather-bot/internal/entities"
	"github.com/abelzeko/weather-bot/internal/observability"
)

const (
	// DefaultAlarmBaseURL is the portal serving alarm scripts
	DefaultAlarmBaseURL = "https://product.weather.com.cn"
	alarmListPath       = "/alarm/grepalarm_cn.php"
	alarmDetailPath     = "/alarm/webdata/"
	alarmHumanURL       = "http://www.weather.com.cn/alarm/newalarmcontent.shtml?file="
)

// AlarmScraper fetches the active alarm list and alarm details
type AlarmScraper struct {
	baseURL string
	fetcher TextFetcher
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewAlarmScraper creates a new alarm scraper
func NewAlarmScraper(baseURL string, fetcher TextFetcher, logger *zap.Logger, metrics *observability.Metrics) *AlarmScraper {
	if baseURL == "" {
		baseURL = DefaultAlarmBaseURL
	}
	return &AlarmScraper{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		fetcher: fetcher,
		logger:  logger,
		metrics: metrics,
	}
}

// FetchAlarms retrieves every active alarm
func (as *AlarmScraper) FetchAlarms(ctx context.Context) ([]entities.Alarm, error) {
	text, err := as.fetcher.FetchText(ctx, as.baseURL+alarmListPath)
	if err != nil {
		return nil, err
	}
	alarms, err := DecodeAlarmList(text)
	if err != nil {
		as.metrics.DecodeFailures.WithLabelValues("alarm").Inc()
		return nil, fmt.Errorf("failed to decode alarm list: %w", err)
	}
	as.metrics.RecordsDecoded.WithLabelValues("alarm").Add(float64(len(alarms)))
	as.logger.Info("Decoded alarm list", zap.Int("alarms", len(alarms)))
	return alarms, nil
}

// FetchAlarmDetail retrieves the full text of one alarm
func (as *AlarmScraper) FetchAlarmDetail(ctx context.Context, shortURL string) (entities.AlarmDetail, error) {
	text, err := as.fetcher.FetchText(ctx, as.ShortURLToCompleted(shortURL))
	if err != nil {
		return entities.AlarmDetail{}, err
	}
	detail, err := DecodeAlarmDetail(text)
	if err != nil {
		as.metrics.DecodeFailures.WithLabelValues("alarm").Inc()
		return entities.AlarmDetail{}, fmt.Errorf("failed to decode alarm %s: %w", shortURL, err)
	}
	return detail, nil
}

// ShortURLToCompleted returns the URL of the detail script of an alarm
func (as *AlarmScraper) ShortURLToCompleted(shortURL string) string {
	return as.baseURL + alarmDetailPath + shortURL
}

// ShortURLToHuman returns the public web page of an alarm
func ShortURLToHuman(shortURL string) string {
	return alarmHumanURL + shortURL
}
