package ocr

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docextract/internal/logger"
	"docextract/internal/port"
)

// ReadPages OCRs every page with at most concurrency workers and returns the
// texts in page order. A failing page is logged and contributes "".
func ReadPages(ctx context.Context, te port.TextExtractor, pages []port.PageImage, concurrency int, log *zap.Logger) []string {
	log = logger.OrNop(log)
	if concurrency < 1 {
		concurrency = 1
	}

	texts := make([]string, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range pages {
		i := i
		page := pages[i]
		g.Go(func() error {
			txt, err := te.ImageToText(gctx, page)
			if err != nil {
				log.Warn("page ocr failed", zap.Int("page", page.Number), zap.Error(err))
				return nil
			}
			texts[i] = txt
			return nil
		})
	}
	_ = g.Wait()
	return texts
}

// ReadWordBoxes returns the word boxes of every page, concatenated in page
// order. Unlike ReadPages it fails on the first page error.
func ReadWordBoxes(ctx context.Context, te port.TextExtractor, pages []port.PageImage, concurrency int) ([]port.WordBox, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	perPage := make([][]port.WordBox, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range pages {
		i := i
		page := pages[i]
		g.Go(func() error {
			boxes, err := te.ImageToWordBoxes(gctx, page)
			if err != nil {
				return err
			}
			perPage[i] = boxes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []port.WordBox
	for _, b := range perPage {
		out = append(out, b...)
	}
	if out == nil {
		out = []port.WordBox{}
	}
	return out, nil
}
