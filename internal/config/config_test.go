package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"TELEGRAM_BOT_TOKEN", "OPENAI_API_KEY", "DB_PATH", "WEATHER_BASE_URL", "ALARM_BASE_URL",
	"FILTER_FILE", "SCRAPE_SCHEDULE", "SCRAPE_CONCURRENCY", "HTTP_TIMEOUT", "FETCH_MAX_RETRIES",
	"METRICS_ADDR", "LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv unsets every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "data/weather.db", cfg.DBPath)
	assert.Equal(t, "http://www.weather.com.cn", cfg.WeatherBaseURL)
	assert.Equal(t, "https://product.weather.com.cn", cfg.AlarmBaseURL)
	assert.Equal(t, "0 * * * *", cfg.ScrapeSchedule)
	assert.Equal(t, 4, cfg.ScrapeConcurrency)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, uint64(3), cfg.FetchMaxRetries)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.OpenAIAPIKey)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "debug")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"TELEGRAM_BOT_TOKEN=123:abc\nSCRAPE_CONCURRENCY=8\nLOG_LEVEL=error\nMETRICS_ADDR=\n"), 0o600))

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.TelegramBotToken)
	assert.Equal(t, 8, cfg.ScrapeConcurrency)
	assert.Equal(t, "debug", cfg.LogLevel, "the environment wins over the file")
	assert.Empty(t, cfg.MetricsAddr)
}

func TestLoadMissingEnvFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"HTTP_TIMEOUT":       "soon",
		"SCRAPE_CONCURRENCY": "0",
		"FETCH_MAX_RETRIES":  "-1",
		"SCRAPE_SCHEDULE":    "every hour",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
