// Package api provides handlers for external APIs and interfaces
package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/abelzeko/weather-bot/internal/integration"
	"github.com/abelzeko/weather-bot/internal/usecases"
)

const helpText = "Available commands:\n" +
	"/start - Start the bot\n" +
	"/provinces - Show the provinces with stored forecasts\n" +
	"/weather [district] - Show the forecast for a district, e.g. /weather 海淀\n" +
	"/alarms [place] - Show active weather alarms, optionally for a place\n" +
	"/alarm [id] - Show the full text of an alarm\n" +
	"/id [province city district | id] - Look up a portal location id\n" +
	"/help - Show this help message\n\n" +
	"You can also just ask, e.g. \"What's the weather in Shijiazhuang?\""

// TelegramBot handles interactions with the Telegram API
type TelegramBot struct {
	bot     *tgbotapi.BotAPI
	useCase *usecases.WeatherUseCase
	logger  *zap.Logger
}

// NewTelegramBot creates a new Telegram bot handler
func NewTelegramBot(botToken string, useCase *usecases.WeatherUseCase, logger *zap.Logger) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &TelegramBot{
		bot:     bot,
		useCase: useCase,
		logger:  logger,
	}, nil
}

// Start listens for and handles Telegram messages until ctx is done
func (t *TelegramBot) Start(ctx context.Context) {
	t.logger.Info("Authorized on Telegram account", zap.String("account", t.bot.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	t.logger.Info("Bot is now listening for messages")

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			t.logger.Info("Bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			t.logger.Info("Received message",
				zap.String("user", userName(update.Message)),
				zap.Int64("chat_id", update.Message.Chat.ID),
				zap.String("text", update.Message.Text))

			t.handleMessage(ctx, update)
		}
	}
}

// handleMessage processes a Telegram message update
func (t *TelegramBot) handleMessage(ctx context.Context, update tgbotapi.Update) {
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, "")
	msg.Text = t.reply(ctx, update.Message)

	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error("Error sending message", zap.Error(err), zap.Int64("chat_id", update.Message.Chat.ID))
	}
}

// reply builds the answer to a message
func (t *TelegramBot) reply(ctx context.Context, message *tgbotapi.Message) string {
	if message.IsCommand() {
		return t.handleCommand(ctx, message)
	}
	return t.handleNonCommand(ctx, message)
}

// handleCommand processes commands like /start, /help, etc.
func (t *TelegramBot) handleCommand(ctx context.Context, message *tgbotapi.Message) string {
	args := strings.TrimSpace(message.CommandArguments())
	t.logger.Debug("Handling command",
		zap.String("command", message.Command()),
		zap.String("args", args),
		zap.String("user", userName(message)))

	switch message.Command() {
	case "start":
		return "Welcome to the Weather Bot! Use /provinces to see where forecasts are available or /help for more information."
	case "help":
		return helpText
	case "provinces":
		return t.handleProvincesCommand()
	case "weather":
		return t.handleWeatherCommand(args)
	case "alarms":
		return t.handleAlarmsCommand(args)
	case "alarm":
		return t.handleAlarmCommand(ctx, args)
	case "id":
		return t.handleIDCommand(ctx, args)
	default:
		t.logger.Info("Received unknown command", zap.String("command", message.Command()))
		return "Unknown command. Use /help to see available commands."
	}
}

// handleProvincesCommand processes the /provinces command
func (t *TelegramBot) handleProvincesCommand() string {
	provinces, err := t.useCase.GetAvailableProvinces()
	if err != nil {
		t.logger.Error("Error fetching provinces", zap.Error(err))
		return "Error fetching forecast data. Please try again later."
	}
	if len(provinces) == 0 {
		return "No forecasts have been collected yet. Please try again later."
	}

	var text strings.Builder
	text.WriteString("Available provinces:\n\n")
	for _, province := range provinces {
		text.WriteString("• " + province + "\n")
	}
	text.WriteString("\nUse /weather [district] to get a forecast.")

	if lastUpdate, err := t.useCase.GetLastUpdateTime(); err == nil && !lastUpdate.IsZero() {
		text.WriteString(fmt.Sprintf("\n\n🕒 Last update: %s", lastUpdate.Format("2006-01-02 15:04 MST")))
	}
	return text.String()
}

// handleWeatherCommand processes the /weather [district] command
func (t *TelegramBot) handleWeatherCommand(district string) string {
	if district == "" {
		return "Please specify a district name. Example: /weather 海淀"
	}

	records, err := t.useCase.GetForecastByDistrict(district)
	if err != nil {
		t.logger.Error("Error fetching forecast", zap.Error(err), zap.String("district", district))
		return "Error fetching forecast data. Please try again later."
	}
	if len(records) == 0 {
		return fmt.Sprintf("No forecast found for '%s'. Use /provinces to see the available provinces.", district)
	}
	return t.useCase.FormatForecast(records)
}

// handleAlarmsCommand processes the /alarms [place] command
func (t *TelegramBot) handleAlarmsCommand(place string) string {
	alarms, err := t.useCase.GetAlarms(place)
	if err != nil {
		t.logger.Error("Error fetching alarms", zap.Error(err), zap.String("place", place))
		return "Error fetching alarms. Please try again later."
	}
	return t.useCase.FormatAlarms(alarms)
}

// handleAlarmCommand processes the /alarm [id] command
func (t *TelegramBot) handleAlarmCommand(ctx context.Context, shortURL string) string {
	if shortURL == "" {
		return "Please specify an alarm id. Example: /alarm 110100-20230815143000-0301.html"
	}

	detail, err := t.useCase.GetAlarmDetail(ctx, shortURL)
	switch {
	case err == nil:
		return t.useCase.FormatAlarmDetail(detail)
	case integration.IsNotFound(err):
		return fmt.Sprintf("Alarm '%s' was not found. It may have been lifted.", shortURL)
	case errors.Is(err, integration.ErrCircuitOpen):
		return "The weather portal is unavailable at the moment. Please try again later."
	default:
		var malformed *integration.MalformedSourceError
		if errors.As(err, &malformed) {
			t.logger.Warn("Malformed alarm", zap.String("short_url", shortURL), zap.String("reason", malformed.Reason))
			return fmt.Sprintf("'%s' is not a valid alarm id.", shortURL)
		}
		t.logger.Error("Error fetching alarm detail", zap.Error(err), zap.String("short_url", shortURL))
		return "Error fetching the alarm. Please try again later."
	}
}

// handleIDCommand processes the /id command
func (t *TelegramBot) handleIDCommand(ctx context.Context, query string) string {
	if query == "" {
		return "Please specify a place or an id. Example: /id 河北 石家庄 or /id 10109"
	}

	id, names, err := t.useCase.LookupLocation(ctx, query)
	if err != nil {
		t.logger.Warn("Location lookup failed", zap.Error(err), zap.String("query", query))
		return "Could not look up that location. Please try again later."
	}
	if id == 0 {
		return fmt.Sprintf("No location found for '%s'.", query)
	}
	return fmt.Sprintf("%d: %s", id, strings.Join(names, " "))
}

// handleNonCommand processes regular messages
func (t *TelegramBot) handleNonCommand(ctx context.Context, message *tgbotapi.Message) string {
	response, err := t.useCase.HandleNaturalLanguageQuery(ctx, message.Text)
	if err != nil {
		t.logger.Error("Error handling free-text query", zap.Error(err))
		return "I don't understand. Use /help to see available commands."
	}
	return response
}

func userName(message *tgbotapi.Message) string {
	if message.From == nil {
		return ""
	}
	return message.From.UserName
}
