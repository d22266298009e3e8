package extractor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"docextract/internal/config"
	"docextract/internal/domain"
	"docextract/internal/logger"
	"docextract/internal/port"
)

// LLMExtractor asks a chat-completion model for the requested fields.
type LLMExtractor struct {
	chat         port.ChatCompleter
	model        string
	maxTokens    int
	temperature  float64
	excerptChars int
	log          *zap.Logger
}

// NewLLMExtractor creates an LLMExtractor. excerptChars bounds the document
// text included in the prompt.
func NewLLMExtractor(chat port.ChatCompleter, cfg *config.LLMConfig, excerptChars int, log *zap.Logger) *LLMExtractor {
	return &LLMExtractor{
		chat:         chat,
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		excerptChars: excerptChars,
		log:          logger.OrNop(log),
	}
}

// Extract makes exactly one completion call. Any failure, including a
// response that cannot be read as a field list, is returned as an error.
func (e *LLMExtractor) Extract(ctx context.Context, input port.ExtractInput) ([]domain.RawField, error) {
	resp, err := e.chat.Complete(ctx, port.ChatRequest{
		SystemMessage: systemPrompt,
		UserMessage:   BuildUserPrompt(input.Text, input.DocType, input.RequestedFields, e.excerptChars),
		Model:         e.model,
		MaxTokens:     e.maxTokens,
		Temperature:   e.temperature,
	})
	if err != nil {
		return nil, err
	}

	fields, err := ParseFieldsResponse(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", resp.ModelUsed, err)
	}

	e.log.Debug("llm extraction complete",
		zap.String("model", resp.ModelUsed),
		zap.Int("fields", len(fields)),
	)
	return fields, nil
}
