package extractor

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"docextract/internal/config"
	"docextract/internal/domain"
	"docextract/internal/llm"
	"docextract/internal/logger"
	"docextract/internal/port"
)

// FallbackExtractor runs the primary extractor and substitutes the fallback's
// output when it fails. There are no retries. It implements
// port.FieldExtractor and never returns the primary's error.
type FallbackExtractor struct {
	primary  port.FieldExtractor
	fallback port.FieldExtractor
	log      *zap.Logger
}

// NewFallbackExtractor composes primary and fallback.
func NewFallbackExtractor(primary, fallback port.FieldExtractor, log *zap.Logger) *FallbackExtractor {
	return &FallbackExtractor{primary: primary, fallback: fallback, log: logger.OrNop(log)}
}

func (f *FallbackExtractor) Extract(ctx context.Context, input port.ExtractInput) ([]domain.RawField, error) {
	fields, err := f.primary.Extract(ctx, input)
	if err == nil {
		return fields, nil
	}

	var rlErr *llm.RateLimitError
	switch {
	case llm.IsConfigError(err):
		f.log.Error("llm extractor misconfigured, using heuristic extraction", zap.Error(err))
	case errors.As(err, &rlErr):
		f.log.Warn("llm extraction failed, using heuristic extraction",
			zap.Error(err),
			zap.String("provider", rlErr.Provider),
			zap.Duration("retry_after", rlErr.RetryAfter),
		)
	default:
		f.log.Warn("llm extraction failed, using heuristic extraction", zap.Error(err))
	}
	return f.fallback.Extract(ctx, input)
}

// New returns the extractor used by the coordinator: the LLM path with a
// heuristic fallback when chat is non-nil, otherwise the heuristic alone.
func New(chat port.ChatCompleter, cfg *config.LLMConfig, excerptChars int, log *zap.Logger) port.FieldExtractor {
	heuristic := NewHeuristicExtractor()
	if chat == nil {
		return heuristic
	}
	return NewFallbackExtractor(NewLLMExtractor(chat, cfg, excerptChars, log), heuristic, log)
}
