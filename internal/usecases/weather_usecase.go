// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/abelzeko/weather-bot/internal/entities"
	"github.com/abelzeko/weather-bot/internal/filter"
	"github.com/abelzeko/weather-bot/internal/integration"
	"github.com/abelzeko/weather-bot/internal/integration/openai"
	"github.com/abelzeko/weather-bot/internal/repository"
)

// ForecastSource provides decoded forecasts for the whole country
type ForecastSource interface {
	GetNationWideWeathers(ctx context.Context, f filter.Filter) ([]entities.WeatherRecord, error)
}

// AlarmSource provides the active alarms
type AlarmSource interface {
	FetchAlarms(ctx context.Context) ([]entities.Alarm, error)
	FetchAlarmDetail(ctx context.Context, shortURL string) (entities.AlarmDetail, error)
}

// LocationResolver maps region names to portal ids and back
type LocationResolver interface {
	IDFromName(ctx context.Context, province, city, district string) (int, error)
	NameFromID(ctx context.Context, id int) ([]string, error)
}

// ErrSourceUnavailable is returned by operations whose source was not configured
var ErrSourceUnavailable = errors.New("source not configured")

// WeatherUseCase handles business logic related to forecasts and alarms
type WeatherUseCase struct {
	repo          repository.WeatherRepository
	forecasts     ForecastSource
	alarms        AlarmSource
	locations     LocationResolver
	openAIService openai.OpenAIService
	filter        filter.Filter
	logger        *zap.Logger
	clock         clockwork.Clock
}

// Sources bundles the optional collaborators of a WeatherUseCase. The bot
// process only reads the repository and leaves Forecasts empty.
type Sources struct {
	Forecasts ForecastSource
	Alarms    AlarmSource
	Locations LocationResolver
	OpenAI    openai.OpenAIService
}

// NewWeatherUseCase creates a new weather use case
func NewWeatherUseCase(repo repository.WeatherRepository, sources Sources, f filter.Filter, logger *zap.Logger) *WeatherUseCase {
	return &WeatherUseCase{
		repo:          repo,
		forecasts:     sources.Forecasts,
		alarms:        sources.Alarms,
		locations:     sources.Locations,
		openAIService: sources.OpenAI,
		filter:        f,
		logger:        logger,
		clock:         clockwork.NewRealClock(),
	}
}

// RefreshForecasts fetches the nation-wide forecast, stores it and drops past days
func (uc *WeatherUseCase) RefreshForecasts(ctx context.Context) (int, error) {
	if uc.forecasts == nil {
		return 0, fmt.Errorf("refresh forecasts: %w", ErrSourceUnavailable)
	}
	uc.logger.Info("Starting forecast refresh")

	records, err := uc.forecasts.GetNationWideWeathers(ctx, uc.filter)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch forecasts: %w", err)
	}
	uc.logger.Info("Fetched forecasts", zap.Int("records", len(records)))

	if err := uc.repo.SaveWeatherRecords(records); err != nil {
		return 0, fmt.Errorf("failed to save forecasts to repository: %w", err)
	}

	today := civil.DateOf(uc.clock.Now().In(entities.ChinaTimezone))
	deleted, err := uc.repo.DeleteForecastsBefore(today)
	if err != nil {
		uc.logger.Warn("Failed to prune past forecasts", zap.Error(err))
	} else if deleted > 0 {
		uc.logger.Info("Pruned past forecasts", zap.Int64("deleted", deleted), zap.Stringer("before", today))
	}
	return len(records), nil
}

// RefreshAlarms replaces the stored alarms with the currently active ones
func (uc *WeatherUseCase) RefreshAlarms(ctx context.Context) (int, error) {
	if uc.alarms == nil {
		return 0, fmt.Errorf("refresh alarms: %w", ErrSourceUnavailable)
	}
	uc.logger.Info("Starting alarm refresh")

	alarms, err := uc.alarms.FetchAlarms(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch alarms: %w", err)
	}
	if err := uc.repo.SaveAlarms(alarms); err != nil {
		return 0, fmt.Errorf("failed to save alarms to repository: %w", err)
	}
	return len(alarms), nil
}

// GetForecastByDistrict retrieves the stored forecast for a district name
func (uc *WeatherUseCase) GetForecastByDistrict(district string) ([]entities.WeatherRecord, error) {
	uc.logger.Debug("Retrieving forecast", zap.String("district", district))
	return uc.repo.GetForecastByDistrict(district)
}

// GetAvailableProvinces returns the provinces with stored forecasts
func (uc *WeatherUseCase) GetAvailableProvinces() ([]string, error) {
	return uc.repo.GetUniqueProvinces()
}

// GetLastUpdateTime returns the portal time of the newest stored forecast
func (uc *WeatherUseCase) GetLastUpdateTime() (time.Time, error) {
	return uc.repo.GetLastUpdateTime()
}

// GetAlarms returns the stored alarms whose location contains place
func (uc *WeatherUseCase) GetAlarms(place string) ([]entities.Alarm, error) {
	return uc.repo.GetAlarms(strings.TrimSpace(place))
}

// GetAlarmDetail fetches the full text of an alarm
func (uc *WeatherUseCase) GetAlarmDetail(ctx context.Context, shortURL string) (entities.AlarmDetail, error) {
	if uc.alarms == nil {
		return entities.AlarmDetail{}, fmt.Errorf("alarm detail: %w", ErrSourceUnavailable)
	}
	return uc.alarms.FetchAlarmDetail(ctx, shortURL)
}

// LookupLocation resolves "province [city [district]]" to a portal id, or a
// numeric id to its names. Unknown places yield id 0 and no names.
func (uc *WeatherUseCase) LookupLocation(ctx context.Context, query string) (int, []string, error) {
	if uc.locations == nil {
		return 0, nil, fmt.Errorf("location lookup: %w", ErrSourceUnavailable)
	}
	fields := strings.Fields(query)
	if len(fields) == 0 || len(fields) > 3 {
		return 0, nil, fmt.Errorf("expected a province, city and district, got %q", query)
	}

	if id, err := strconv.Atoi(fields[0]); err == nil && len(fields) == 1 {
		names, err := uc.locations.NameFromID(ctx, id)
		if err != nil || names == nil {
			return 0, nil, err
		}
		return id, names, nil
	}

	names := make([]string, 3)
	copy(names, fields)
	id, err := uc.locations.IDFromName(ctx, names[0], names[1], names[2])
	if err != nil || id == 0 {
		return 0, nil, err
	}
	return id, fields, nil
}

// HandleNaturalLanguageQuery interprets a user's free-text query using the AI service
// and returns an appropriate response string.
func (uc *WeatherUseCase) HandleNaturalLanguageQuery(ctx context.Context, query string) (string, error) {
	if uc.openAIService == nil {
		return "I don't understand. Use /help to see available commands.", nil
	}
	uc.logger.Info("Interpreting natural language query", zap.String("query", query))

	provinces, err := uc.GetAvailableProvinces()
	if err != nil {
		uc.logger.Error("Error fetching available provinces", zap.Error(err))
		return "Sorry, I couldn't fetch the list of provinces right now.", nil
	}

	agentResp, err := uc.openAIService.InterpretUserQuery(ctx, query, provinces)
	if err != nil {
		uc.logger.Error("Error interpreting user query via OpenAI", zap.Error(err))
		return "Sorry, I'm having trouble understanding right now. Please try again later or use /help.", nil
	}

	uc.logger.Info("Agent response",
		zap.String("command", agentResp.CommandName),
		zap.String("district", agentResp.DistrictName),
		zap.String("message", agentResp.UserMessage))

	switch agentResp.CommandName {
	case openai.CommandGetForecastByDistrict:
		if agentResp.DistrictName == "" {
			// The agent's message asks which place is meant
			return agentResp.UserMessage, nil
		}
		records, err := uc.GetForecastByDistrict(agentResp.DistrictName)
		if err != nil {
			uc.logger.Error("Error fetching forecast after agent interpretation", zap.Error(err))
			return "Sorry, I couldn't fetch the forecast for that place right now.", nil
		}
		if len(records) == 0 {
			return withPreamble(agentResp.UserMessage,
				fmt.Sprintf("However, I couldn't find a forecast for '%s'. Use /provinces to see what is available.", agentResp.DistrictName)), nil
		}
		return withPreamble(agentResp.UserMessage, uc.FormatForecast(records)), nil

	case openai.CommandGetAlarms:
		alarms, err := uc.GetAlarms(agentResp.DistrictName)
		if err != nil {
			uc.logger.Error("Error fetching alarms after agent interpretation", zap.Error(err))
			return "Sorry, I couldn't fetch the alarms right now.", nil
		}
		return withPreamble(agentResp.UserMessage, uc.FormatAlarms(alarms)), nil

	case openai.CommandGeneralQuery:
		return agentResp.UserMessage, nil

	default:
		uc.logger.Warn("Agent returned unexpected command", zap.String("command", agentResp.CommandName))
		return "I'm not sure how to respond to that. You can use /help for commands.", nil
	}
}

func withPreamble(preamble, body string) string {
	if preamble == "" {
		return body
	}
	return preamble + "\n\n" + body
}

// FormatForecast formats stored forecast days for display, one block per district
func (uc *WeatherUseCase) FormatForecast(records []entities.WeatherRecord) string {
	if len(records) == 0 {
		return "No forecast available for this place."
	}

	var result strings.Builder
	lastID := 0
	for _, rec := range records {
		if rec.DistrictID != lastID {
			if lastID != 0 {
				result.WriteString("\n")
			}
			result.WriteString(fmt.Sprintf("📍 %s\n", regionLabel(rec)))
			lastID = rec.DistrictID
		}

		result.WriteString(fmt.Sprintf("📅 %s %s\n", rec.Date, rec.Date.In(entities.ChinaTimezone).Weekday().String()[:3]))
		if rec.DayWeather != nil && rec.TempMax != nil {
			result.WriteString(fmt.Sprintf("  ☀️ %s, %s %s, %d°C\n",
				rec.DayWeather.Event, rec.DayWeather.WindDir, rec.DayWeather.WindScale, *rec.TempMax))
		}
		result.WriteString(fmt.Sprintf("  🌙 %s, %s %s, %d°C\n",
			rec.NightWeather.Event, rec.NightWeather.WindDir, rec.NightWeather.WindScale, rec.TempMin))
	}

	result.WriteString(fmt.Sprintf("\n🕒 Last update: %s", records[len(records)-1].UpdateTime.Format("2006-01-02 15:04 MST")))
	return result.String()
}

func regionLabel(rec entities.WeatherRecord) string {
	parts := []string{rec.Province}
	if rec.City != rec.Province {
		parts = append(parts, rec.City)
	}
	if rec.District != rec.City {
		parts = append(parts, rec.District)
	}
	return strings.Join(parts, " / ")
}

// FormatAlarms formats alarms for display
func (uc *WeatherUseCase) FormatAlarms(alarms []entities.Alarm) string {
	if len(alarms) == 0 {
		return "No active weather alarms."
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("⚠️ %d active alarm(s):\n\n", len(alarms)))
	for _, a := range alarms {
		result.WriteString(fmt.Sprintf("%s %s%s预警\n", levelIcon(a.Level), a.Kind, a.Level))
		result.WriteString(fmt.Sprintf("📍 %s\n", a.Location))
		result.WriteString(fmt.Sprintf("🕒 %s\n", a.Time.Format("2006-01-02 15:04")))
		result.WriteString(fmt.Sprintf("🔗 %s\n\n", integration.ShortURLToHuman(a.ShortURL)))
	}
	return strings.TrimRight(result.String(), "\n")
}

// FormatAlarmDetail formats the full text of an alarm for display
func (uc *WeatherUseCase) FormatAlarmDetail(detail entities.AlarmDetail) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("%s %s\n\n", levelIcon(detail.Level), detail.Title))
	result.WriteString(detail.Content)
	result.WriteString(fmt.Sprintf("\n\n🕒 Issued: %s", detail.Time.Format("2006-01-02 15:04")))
	if !detail.RelieveTime.IsZero() {
		result.WriteString(fmt.Sprintf("\n✅ Until: %s", detail.RelieveTime.Format("2006-01-02 15:04")))
	}
	return result.String()
}

func levelIcon(level entities.AlarmLevel) string {
	switch level {
	case entities.AlarmBlue:
		return "🔵"
	case entities.AlarmYellow:
		return "🟡"
	case entities.AlarmOrange:
		return "🟠"
	case entities.AlarmRed:
		return "🔴"
	default:
		return "⚪"
	}
}
