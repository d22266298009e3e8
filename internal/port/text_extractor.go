package port

import (
	"context"

	"docextract/internal/domain"
)

// PageImage is one rendered page, PNG-encoded.
type PageImage struct {
	Number int // 1-based
	Data   []byte
}

// WordBox is a single OCR word with its bounding box.
type WordBox struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // tesseract scale 0..100, -1 for non-word rows
	Left       int     `json:"left"`
	Top        int     `json:"top"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	PageNum    int     `json:"page_num"`
}

// TextExtractor converts document bytes into page images and page text.
type TextExtractor interface {
	Render(ctx context.Context, data []byte, kind domain.FileKind) ([]PageImage, error)
	ImageToText(ctx context.Context, page PageImage) (string, error)
	ImageToWordBoxes(ctx context.Context, page PageImage) ([]WordBox, error)
}
