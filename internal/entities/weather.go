// Package entities contains the core domain objects for the weather-bot application
package entities

import (
	"time"

	"cloud.google.com/go/civil"
)

// ChinaTimezone is the fixed +08:00 zone every portal timestamp is published in
var ChinaTimezone = time.FixedZone("Asia/Shanghai", 8*60*60)

// WeatherInfo describes one half-day of conditions
type WeatherInfo struct {
	Event     string // Weather phenomenon, e.g. 晴
	WindDir   string // Wind direction
	WindScale string // Wind force, e.g. 3级
}

// WeatherRecord is the forecast of a single district for a single date
type WeatherRecord struct {
	Province     string
	ProvinceURL  string // Province page of the portal
	City         string
	District     string
	DistrictID   int        // District number used by the portal
	Date         civil.Date // Forecast date
	UpdateTime   time.Time  // When the portal published the forecast
	DayWeather   *WeatherInfo
	NightWeather WeatherInfo
	TempMax      *int // Nil exactly when DayWeather is nil
	TempMin      int
}

// HasDaytime reports whether the record carries daytime data.
func (w WeatherRecord) HasDaytime() bool {
	return w.DayWeather != nil && w.TempMax != nil
}
