package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docextract/internal/config"
	"docextract/internal/llm"
	llmopenai "docextract/internal/llm/openai"
	"docextract/internal/port"
)

func newTestClient(serverURL, apiKey string) *llmopenai.Client {
	return llmopenai.NewClient(&config.LLMConfig{
		Provider:    "openai",
		APIKey:      apiKey,
		BaseURL:     serverURL,
		Model:       "gpt-4o-mini",
		MaxTokens:   800,
		TimeoutSecs: 5,
	}, zap.NewNop())
}

func completionBody(content string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini-2024-07-18",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]interface{}{"role": "assistant", "content": content},
			},
		},
	}
}

func TestComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.Equal(t, float64(800), body["max_tokens"])
		assert.Len(t, body["messages"], 2)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completionBody(`[{"name":"Vendor","value":"Acme","confidence":0.9}]`))
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL, "sk-test").Complete(context.Background(), port.ChatRequest{
		SystemMessage: "sys",
		UserMessage:   "user",
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "Acme")
	assert.Equal(t, "gpt-4o-mini-2024-07-18", resp.ModelUsed)
}

func TestComplete_MissingKey(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:1", "").Complete(context.Background(), port.ChatRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, llm.ErrMissingCredentials))
}

func TestComplete_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, "sk-test").Complete(context.Background(), port.ChatRequest{})
	var rlErr *llm.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "openai", rlErr.Provider)
}

func TestComplete_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, "sk-test").Complete(context.Background(), port.ChatRequest{})
	var tErr *llm.TransientError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, http.StatusInternalServerError, tErr.StatusCode)
}

func TestComplete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		body := completionBody("")
		body["choices"] = []interface{}{}
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, "sk-test").Complete(context.Background(), port.ChatRequest{})
	var tErr *llm.TransientError
	require.True(t, errors.As(err, &tErr))
}
