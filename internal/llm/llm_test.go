package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/daybreak/internal/common"
)

func anthropicServer(t *testing.T, handler func(req map[string]any) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))

		status, resp := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func messageResponse(text string) map[string]any {
	return map[string]any{
		"id":            "msg_test",
		"type":          "message",
		"role":          "assistant",
		"model":         DefaultAnthropicModel,
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"usage": map[string]any{"input_tokens": 42, "output_tokens": 7},
	}
}

// ── Anthropic ──

func TestAnthropicComplete(t *testing.T) {
	var got map[string]any
	srv := anthropicServer(t, func(req map[string]any) (int, any) {
		got = req
		return http.StatusOK, messageResponse("MORNING_BRIEF:\nQuiet tape.")
	})

	p, err := NewAnthropicProvider(
		Config{APIKey: "test-key", MaxTokens: 800, Temperature: 0.7},
		WithAnthropicBaseURL(srv.URL),
		WithAnthropicHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	text, err := p.Complete(context.Background(), "Summarize the tape.")
	require.NoError(t, err)
	assert.Equal(t, "MORNING_BRIEF:\nQuiet tape.", text)

	assert.Equal(t, DefaultAnthropicModel, got["model"])
	assert.EqualValues(t, 800, got["max_tokens"])
	assert.InDelta(t, 0.7, got["temperature"], 1e-9)
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
}

func TestAnthropicEmptyResponse(t *testing.T) {
	srv := anthropicServer(t, func(map[string]any) (int, any) {
		resp := messageResponse("")
		resp["content"] = []map[string]any{}
		return http.StatusOK, resp
	})

	p, err := NewAnthropicProvider(Config{APIKey: "test-key"},
		WithAnthropicBaseURL(srv.URL), WithAnthropicHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestAnthropicAPIError(t *testing.T) {
	srv := anthropicServer(t, func(map[string]any) (int, any) {
		return http.StatusBadRequest, map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "invalid_request_error", "message": "bad model"},
		}
	})

	p, err := NewAnthropicProvider(Config{APIKey: "test-key", Model: "nope"},
		WithAnthropicBaseURL(srv.URL), WithAnthropicHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), "x")
	assert.Error(t, err)
}

func TestAnthropicDefaults(t *testing.T) {
	p, err := NewAnthropicProvider(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, p.Name())
	assert.Equal(t, DefaultAnthropicModel, p.Model())
	assert.Equal(t, 800, p.maxTokens)
}

func TestNoAPIKey(t *testing.T) {
	_, err := NewAnthropicProvider(Config{})
	assert.ErrorIs(t, err, ErrNoAPIKey)

	_, err = NewGeminiProvider(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

// ── Gemini ──

func TestGeminiDefaults(t *testing.T) {
	p, err := NewGeminiProvider(context.Background(), Config{APIKey: "k", Model: DefaultAnthropicModel})
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p.Name())
	assert.Equal(t, DefaultGeminiModel, p.Model(), "a Claude model name is not carried over")
}

// ── Factory ──

func TestNew(t *testing.T) {
	ctx := context.Background()
	logger := common.NewSilentLogger()

	p, err := New(ctx, Config{Provider: ProviderAnthropic, APIKey: "k"}, logger)
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, p.Name())

	p, err = New(ctx, Config{Provider: ProviderGemini, APIKey: "k"}, logger)
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p.Name())

	_, err = New(ctx, Config{Provider: ProviderNone}, logger)
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = New(ctx, Config{Provider: "openai", APIKey: "k"}, logger)
	assert.Error(t, err)
}
