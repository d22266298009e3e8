package port

import (
	"context"

	"docextract/internal/domain"
)

// ExtractInput carries the text and routing hints for field extraction.
type ExtractInput struct {
	Text            string
	DocType         domain.DocType
	RequestedFields []string // nil = extractor default
}

// FieldExtractor turns document text into raw field candidates.
type FieldExtractor interface {
	Extract(ctx context.Context, input ExtractInput) ([]domain.RawField, error)
}
