package integration

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abelzeko/weather-bot/internal/entities"
)

func newTestAlarmScraper(t *testing.T) *AlarmScraper {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/alarm/grepalarm_cn.php", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, alarmListScript)
	})
	mux.HandleFunc("/alarm/webdata/110100-20230815143000-0301.html", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, alarmDetailScript)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	fetcher, metrics := newTestFetcher(0)
	return NewAlarmScraper(server.URL, fetcher, zap.NewNop(), metrics)
}

func TestFetchAlarms(t *testing.T) {
	scraper := newTestAlarmScraper(t)
	alarms, err := scraper.FetchAlarms(context.Background())
	require.NoError(t, err)
	require.Len(t, alarms, 3)
	assert.Equal(t, "北京市", alarms[0].Location)
}

func TestFetchAlarmDetail(t *testing.T) {
	scraper := newTestAlarmScraper(t)
	detail, err := scraper.FetchAlarmDetail(context.Background(), "110100-20230815143000-0301.html")
	require.NoError(t, err)
	assert.Equal(t, entities.AlarmBlizzard, detail.Kind)

	_, err = scraper.FetchAlarmDetail(context.Background(), "110100-20230815143000-0302.html")
	assert.True(t, IsNotFound(err))
}

func TestAlarmURLs(t *testing.T) {
	scraper := NewAlarmScraper("", nil, zap.NewNop(), nil)
	assert.Equal(t, "https://product.weather.com.cn/alarm/webdata/110100-20230815143000-0301.html",
		scraper.ShortURLToCompleted("110100-20230815143000-0301.html"))
	assert.Equal(t, "http://www.weather.com.cn/alarm/newalarmcontent.shtml?file=110100-20230815143000-0301.html",
		ShortURLToHuman("110100-20230815143000-0301.html"))
}
