// Package openai implements port.ChatCompleter with the official OpenAI Go SDK.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"docextract/internal/config"
	"docextract/internal/llm"
	"docextract/internal/logger"
	"docextract/internal/port"
)

const (
	providerName = "openai"
	defaultModel = "gpt-4o-mini"
)

// Client implements port.ChatCompleter on top of openai-go.
type Client struct {
	client    openai.Client
	apiKey    string
	model     string
	maxTokens int
	log       *zap.Logger
}

// NewClient creates a client from the LLM config. SDK retries are disabled so
// a failing provider surfaces immediately to the caller's fallback.
func NewClient(cfg *config.LLMConfig, log *zap.Logger) *Client {
	opts := []openaiopt.RequestOption{
		openaiopt.WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
		openaiopt.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, openaiopt.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, openaiopt.WithBaseURL(base))
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Client{
		client:    openai.NewClient(opts...),
		apiKey:    cfg.APIKey,
		model:     model,
		maxTokens: cfg.MaxTokens,
		log:       logger.OrNop(log),
	}
}

// NewChatCompleter adapts NewClient to llm.ProviderFactory.
func NewChatCompleter(cfg *config.LLMConfig, log *zap.Logger) (port.ChatCompleter, error) {
	return NewClient(cfg, log), nil
}

// Complete sends a single system+user exchange.
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

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{OfString: openai.String(req.SystemMessage)},
			}},
			{OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{OfString: openai.String(req.UserMessage)},
			}},
		},
		Temperature: openai.Float(req.Temperature),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}
	c.log.Debug("llm response",
		zap.String("provider", providerName),
		zap.String("model", resp.Model),
		zap.Int("choices", len(resp.Choices)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, &llm.TransientError{Provider: providerName, StatusCode: http.StatusOK, Err: errors.New("empty response from API: no content")}
	}

	used := resp.Model
	if used == "" {
		used = model
	}
	return &port.ChatResponse{Content: resp.Choices[0].Message.Content, ModelUsed: used}, nil
}

// classifyError maps SDK errors onto the llm error taxonomy.
func classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			retryAfter := 0
			if apiErr.Response != nil {
				retryAfter = llm.ParseRetryAfterHeader(apiErr.Response.Header.Get("Retry-After"))
			}
			return llm.NewRateLimitError(providerName, err, retryAfter)
		}
		return &llm.TransientError{Provider: providerName, StatusCode: apiErr.StatusCode, Err: err}
	}
	return &llm.TransientError{Provider: providerName, Err: fmt.Errorf("request failed: %w", err)}
}
