package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// Commands the agent can select
const (
	CommandGetForecastByDistrict = "GetForecastByDistrict"
	CommandGetAlarms             = "GetAlarms"
	CommandGeneralQuery          = "GeneralQuery"
)

// AgentResponse defines the structured output from the OpenAI agent.
type AgentResponse struct {
	CommandName  string `json:"command_name" jsonschema_description:"The command to execute: GetForecastByDistrict, GetAlarms or GeneralQuery"`
	DistrictName string `json:"district_name" jsonschema_description:"The Chinese name of the district or city the user asks about, without suffixes like 市 or 区, if applicable"`
	UserMessage  string `json:"user_message" jsonschema_description:"A message to show back to the user in their original language"`
}

// OpenAIService defines the interface for interacting with the OpenAI agent.
type OpenAIService interface {
	InterpretUserQuery(ctx context.Context, userMessage string, provinces []string) (*AgentResponse, error)
}

// openAIServiceImpl implements the OpenAIService interface.
type openAIServiceImpl struct {
	client openai.Client
	schema interface{}
	logger *zap.Logger
}

// GenerateSchema generates a JSON schema for a given type.
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return schema
}

// NewOpenAIService creates and initializes a new OpenAIService.
// Extra client options are used by tests to point the client at a fake server.
func NewOpenAIService(apiKey string, logger *zap.Logger, opts ...option.RequestOption) (OpenAIService, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key not set")
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)

	return &openAIServiceImpl{
		client: client,
		schema: GenerateSchema[AgentResponse](),
		logger: logger,
	}, nil
}

func systemPrompt(provinces []string) string {
	return fmt.Sprintf(`You are a concise weather assistant for mainland China, Hong Kong, Macau and Taiwan. Forecast data comes from the China Meteorological Administration portal and is stored per district (区县) with Chinese names.

Requirements:
- You understand Chinese, English and Russian.
- You reply in the same language the user used, in one or two short sentences.
- Place names must be returned in simplified Chinese as they appear on the portal (e.g. "Shijiazhuang" -> "石家庄", "Haidian district" -> "海淀").

Provinces with stored forecasts: %s

Behavior:
1. If the user wants the forecast for a specific place:
   - command_name = "GetForecastByDistrict"
   - district_name = the Chinese district or city name; leave it empty if you cannot tell which place is meant.
   - user_message: a one-line confirmation in the user's language.
2. If the user asks about weather warnings or alarms (预警):
   - command_name = "GetAlarms"
   - district_name = the Chinese place name to look for, or "" for every active alarm.
   - user_message: a one-line confirmation in the user's language.
3. Anything else (greetings, small talk, unrelated questions):
   - command_name = "GeneralQuery"
   - district_name = ""
   - user_message: a short reply in their language, pointing at /help when useful.

Output **strictly** in JSON.`, strings.Join(provinces, ", "))
}

// InterpretUserQuery sends a message to the OpenAI agent and returns the structured response.
func (s *openAIServiceImpl) InterpretUserQuery(ctx context.Context, userMessage string, provinces []string) (*AgentResponse, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "agent_response",
		Description: openai.String("Structured response containing command, district name, and user message"),
		Schema:      s.schema,
		Strict:      openai.Bool(true),
	}

	respFormat := openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
	}

	chat, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(provinces)),
			openai.UserMessage(userMessage),
		},
		ResponseFormat: respFormat,
		Model:          openai.ChatModelGPT4o,
	})

	if err != nil {
		return nil, fmt.Errorf("error calling OpenAI API: %w", err)
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, errors.New("received empty response from OpenAI")
	}

	agentResp, err := parseAgentResponse(chat.Choices[0].Message.Content)
	if err != nil {
		s.logger.Error("Failed to unmarshal OpenAI response",
			zap.Error(err), zap.String("raw", chat.Choices[0].Message.Content))
		return nil, err
	}
	return agentResp, nil
}

func parseAgentResponse(content string) (*AgentResponse, error) {
	var agentResp AgentResponse
	if err := json.Unmarshal([]byte(content), &agentResp); err != nil {
		return nil, fmt.Errorf("error unmarshalling OpenAI response: %w", err)
	}
	agentResp.DistrictName = strings.TrimSpace(agentResp.DistrictName)
	return &agentResp, nil
}
