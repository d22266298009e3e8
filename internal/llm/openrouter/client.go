// Package openrouter implements port.ChatCompleter against an
// OpenAI-compatible Chat Completions endpoint such as OpenRouter.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docextract/internal/config"
	"docextract/internal/llm"
	"docextract/internal/logger"
	"docextract/internal/port"
)

const (
	providerName = "openrouter"
	apiURL       = "https://openrouter.ai/api/v1/chat/completions"
	defaultModel = "gpt-4o-mini"
)

// Client implements port.ChatCompleter using raw HTTP.
type Client struct {
	apiKey    string
	model     string
	maxTokens int
	endpoint  string
	client    *http.Client
	log       *zap.Logger
}

// NewClient creates a client from the LLM config. cfg.BaseURL overrides the
// default endpoint and may point at any OpenAI-compatible server.
func NewClient(cfg *config.LLMConfig, log *zap.Logger) *Client {
	endpoint := apiURL
	if cfg.BaseURL != "" {
		endpoint = strings.TrimRight(cfg.BaseURL, "/")
		if !strings.HasSuffix(endpoint, "/chat/completions") {
			endpoint += "/chat/completions"
		}
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey:    cfg.APIKey,
		model:     model,
		maxTokens: cfg.MaxTokens,
		endpoint:  endpoint,
		client:    &http.Client{Timeout: cfg.Timeout()},
		log:       logger.OrNop(log),
	}
}

// NewChatCompleter adapts NewClient to llm.ProviderFactory.
func NewChatCompleter(cfg *config.LLMConfig, log *zap.Logger) (port.ChatCompleter, error) {
	return NewClient(cfg, log), nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

// apiResponse covers both the chat-completions shape and the plain "output"
// shape some routers return.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Output string `json:"output"`
	Model  string `json:"model"`
}

// Complete sends a single system+user exchange. A missing API key fails
// before any network traffic with a *llm.ConfigError.
func (c *Client) Complete(ctx context.Context, req port.ChatRequest) (*port.ChatResponse, error) {
	if c.apiKey == "" {
		return nil, llm.NewMissingCredentialsError(providerName)
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemMessage},
			{Role: "user", Content: req.UserMessage},
		},
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	reqID := uuid.New().String()
	start := time.Now()
	c.log.Debug("llm request",
		zap.String("req_id", reqID),
		zap.String("provider", providerName),
		zap.String("model", model),
		zap.Int("content_length", len(bodyBytes)),
	)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &llm.TransientError{Provider: providerName, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &llm.TransientError{Provider: providerName, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	c.log.Debug("llm response",
		zap.String("req_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(respBody)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("api error: %s", truncate(string(respBody), 500))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := llm.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, llm.NewRateLimitError(providerName, baseErr, retryAfter)
		}
		return nil, &llm.TransientError{Provider: providerName, StatusCode: resp.StatusCode, Err: baseErr}
	}

	content, usedModel, err := parseResponse(respBody)
	if err != nil {
		return nil, &llm.TransientError{Provider: providerName, StatusCode: resp.StatusCode, Err: err}
	}
	if usedModel == "" {
		usedModel = model
	}
	return &port.ChatResponse{Content: content, ModelUsed: usedModel}, nil
}

func parseResponse(body []byte) (content, model string, err error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", fmt.Errorf("unmarshaling response: %w", err)
	}
	switch {
	case len(resp.Choices) > 0:
		content = resp.Choices[0].Message.Content
	case resp.Output != "":
		content = resp.Output
	}
	if strings.TrimSpace(content) == "" {
		return "", "", errors.New("empty response from API: no content")
	}
	return content, resp.Model, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
