package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"docextract/internal/classifier"
	"docextract/internal/domain"
	"docextract/internal/logger"
	"docextract/internal/ocr"
	"docextract/internal/port"
	"docextract/internal/qa"
)

// ExtractionOptions tunes the extraction pipeline.
type ExtractionOptions struct {
	OCRConcurrency int
	TotalTolerance float64
	DefaultBucket  string
}

// ExtractionService defines the document extraction contract.
type ExtractionService interface {
	ExtractFromBytes(ctx context.Context, fileBytes []byte, filename string, requestedFields []string) (*domain.ExtractionResult, error)
	ExtractFromStorage(ctx context.Context, bucket, key string, requestedFields []string) (*domain.ExtractionResult, error)
	WordBoxes(ctx context.Context, fileBytes []byte, filename string) ([]port.WordBox, error)
}

type extractionService struct {
	text    port.TextExtractor
	fields  port.FieldExtractor
	storage port.ObjectStorage // nil when no bucket is configured
	checker *qa.Checker
	opts    ExtractionOptions
	log     *zap.Logger
}

// NewExtractionService creates a new ExtractionService implementation.
func NewExtractionService(
	text port.TextExtractor,
	fields port.FieldExtractor,
	storage port.ObjectStorage,
	opts ExtractionOptions,
	log *zap.Logger,
) ExtractionService {
	if opts.OCRConcurrency < 1 {
		opts.OCRConcurrency = 1
	}
	return &extractionService{
		text:    text,
		fields:  fields,
		storage: storage,
		checker: qa.NewChecker(opts.TotalTolerance),
		opts:    opts,
		log:     logger.OrNop(log),
	}
}

// fileKind picks the rendering path from the filename alone.
func fileKind(filename string) domain.FileKind {
	if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return domain.FileKindPDF
	}
	return domain.FileKindImage
}

func (s *extractionService) render(ctx context.Context, fileBytes []byte, filename string) ([]port.PageImage, error) {
	pages, err := s.text.Render(ctx, fileBytes, fileKind(filename))
	if err != nil {
		if errors.Is(err, domain.ErrUndecodableDocument) {
			return nil, err
		}
		return nil, fmt.Errorf("rendering %s: %w", filename, err)
	}
	return pages, nil
}

func (s *extractionService) ExtractFromBytes(ctx context.Context, fileBytes []byte, filename string, requestedFields []string) (*domain.ExtractionResult, error) {
	start := time.Now()

	pages, err := s.render(ctx, fileBytes, filename)
	if err != nil {
		return nil, err
	}

	texts := ocr.ReadPages(ctx, s.text, pages, s.opts.OCRConcurrency, s.log)
	var full strings.Builder
	for _, t := range texts {
		full.WriteString(t)
		full.WriteString("\n\n")
	}
	fullText := full.String()

	docType := classifier.Classify(fullText)

	if len(requestedFields) == 0 {
		requestedFields = nil
	}
	raw, err := s.fields.Extract(ctx, port.ExtractInput{
		Text:            fullText,
		DocType:         docType,
		RequestedFields: requestedFields,
	})
	if err != nil {
		// Extraction errors degrade to empty fields, never a failed document.
		s.log.Error("field extraction failed", zap.Error(err))
		raw = nil
	}

	fields := normalizeFields(raw, requestedFields)
	result := &domain.ExtractionResult{
		DocType:           docType,
		Fields:            fields,
		OverallConfidence: overallConfidence(fields),
		QA:                s.checker.Run(fields),
	}

	s.log.Info("document extracted",
		zap.String("filename", filename),
		zap.Int("pages", len(pages)),
		zap.String("doc_type", string(docType)),
		zap.Int("fields", len(fields)),
		zap.Float64("overall_confidence", result.OverallConfidence),
		zap.Strings("qa_failed", result.QA.FailedRules),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (s *extractionService) ExtractFromStorage(ctx context.Context, bucket, key string, requestedFields []string) (*domain.ExtractionResult, error) {
	if s.storage == nil {
		return nil, domain.ErrStorageNotConfigured
	}
	if bucket == "" {
		bucket = s.opts.DefaultBucket
	}
	data, err := s.storage.Download(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	return s.ExtractFromBytes(ctx, data, storedFilename(key, data), requestedFields)
}

// storedFilename names a downloaded object. Keys without a .pdf suffix whose
// content sniffs as PDF get one so the PDF rendering path is taken.
func storedFilename(key string, data []byte) string {
	name := path.Base(key)
	if fileKind(name) != domain.FileKindPDF && mimetype.Detect(data).Is("application/pdf") {
		name += ".pdf"
	}
	return name
}

func (s *extractionService) WordBoxes(ctx context.Context, fileBytes []byte, filename string) ([]port.WordBox, error) {
	pages, err := s.render(ctx, fileBytes, filename)
	if err != nil {
		return nil, err
	}
	return ocr.ReadWordBoxes(ctx, s.text, pages, s.opts.OCRConcurrency)
}

// normalizeFields clamps confidences and attaches page-1 provenance. With a
// request list the output has exactly one Field per requested name, matched
// by exact name first and then case-insensitively.
func normalizeFields(raw []domain.RawField, requested []string) []domain.Field {
	if len(requested) == 0 {
		out := make([]domain.Field, 0, len(raw))
		for _, r := range raw {
			out = append(out, newField(r.Name, r.Value, r.Confidence))
		}
		return out
	}

	used := make([]bool, len(raw))
	find := func(match func(string) bool) int {
		for i, r := range raw {
			if !used[i] && match(r.Name) {
				return i
			}
		}
		return -1
	}

	out := make([]domain.Field, 0, len(requested))
	for _, name := range requested {
		i := find(func(n string) bool { return n == name })
		if i < 0 {
			i = find(func(n string) bool { return strings.EqualFold(n, name) })
		}
		if i < 0 {
			out = append(out, newField(name, nil, 0))
			continue
		}
		used[i] = true
		out = append(out, newField(name, raw[i].Value, raw[i].Confidence))
	}
	return out
}

func newField(name string, value *string, confidence float64) domain.Field {
	return domain.Field{
		Name:       name,
		Value:      value,
		Confidence: clampConfidence(confidence),
		Source:     &domain.FieldSource{Page: 1},
	}
}

func clampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

func overallConfidence(fields []domain.Field) float64 {
	if len(fields) == 0 {
		return 0
	}
	var sum float64
	for _, f := range fields {
		sum += f.Confidence
	}
	return sum / float64(len(fields))
}
