package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGenerateSchema(t *testing.T) {
	raw, err := json.Marshal(GenerateSchema[AgentResponse]())
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))
	assert.Equal(t, false, schema["additionalProperties"])

	properties, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, properties, "command_name")
	assert.Contains(t, properties, "district_name")
	assert.Contains(t, properties, "user_message")
}

func TestNewOpenAIServiceRequiresKey(t *testing.T) {
	_, err := NewOpenAIService("", zap.NewNop())
	assert.Error(t, err)
}

func TestInterpretUserQuery(t *testing.T) {
	var requestBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requestBody = string(body)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1700000000,"model":"gpt-4o",`+
			`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant",`+
			`"content":"{\"command_name\":\"GetForecastByDistrict\",\"district_name\":\" 石家庄 \",\"user_message\":\"Looking up Shijiazhuang.\"}"}}]}`)
	}))
	defer server.Close()

	service, err := NewOpenAIService("test-key", zap.NewNop(),
		option.WithBaseURL(server.URL+"/"), option.WithMaxRetries(0))
	require.NoError(t, err)

	resp, err := service.InterpretUserQuery(context.Background(), "weather in Shijiazhuang?", []string{"北京", "河北"})
	require.NoError(t, err)
	assert.Equal(t, CommandGetForecastByDistrict, resp.CommandName)
	assert.Equal(t, "石家庄", resp.DistrictName)
	assert.Equal(t, "Looking up Shijiazhuang.", resp.UserMessage)

	assert.Contains(t, requestBody, "agent_response")
	assert.Contains(t, requestBody, "weather in Shijiazhuang?")
}

func TestParseAgentResponse(t *testing.T) {
	resp, err := parseAgentResponse(`{"command_name":"GetAlarms","district_name":"","user_message":"好的"}`)
	require.NoError(t, err)
	assert.Equal(t, CommandGetAlarms, resp.CommandName)
	assert.Empty(t, resp.DistrictName)

	_, err = parseAgentResponse(`not json`)
	assert.Error(t, err)
}
