// Package ocr renders documents to page images and runs tesseract over them.
// PDF rasterization shells out to pdftoppm; both binaries are resolved from
// config.OCRConfig.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"docextract/internal/config"
	"docextract/internal/domain"
	"docextract/internal/logger"
	"docextract/internal/port"
)

// Adapter implements port.TextExtractor.
type Adapter struct {
	cfg    config.OCRConfig
	runner Runner
	log    *zap.Logger
}

// NewAdapter creates an Adapter that executes the configured binaries.
func NewAdapter(cfg config.OCRConfig, log *zap.Logger) *Adapter {
	log = logger.OrNop(log)
	return NewAdapterWithRunner(cfg, execRunner{log: log}, log)
}

// NewAdapterWithRunner creates an Adapter with a custom command runner (for testing).
func NewAdapterWithRunner(cfg config.OCRConfig, runner Runner, log *zap.Logger) *Adapter {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Adapter{cfg: cfg, runner: runner, log: logger.OrNop(log)}
}

// CheckBinaries reports whether the OCR binaries resolve on PATH.
func (a *Adapter) CheckBinaries() error {
	for _, bin := range []string{a.cfg.Pdftoppm, a.cfg.Tesseract} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s not found: %w", bin, err)
		}
	}
	return nil
}

// Render converts document bytes into PNG page images in page order.
// Bytes that cannot be decoded yield domain.ErrUndecodableDocument.
func (a *Adapter) Render(ctx context.Context, data []byte, kind domain.FileKind) ([]port.PageImage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", domain.ErrUndecodableDocument)
	}
	if kind == domain.FileKindPDF {
		return a.renderPDF(ctx, data)
	}
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	return []port.PageImage{{Number: 1, Data: img}}, nil
}

func decodeImage(data []byte) ([]byte, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: detected %s", domain.ErrUndecodableDocument, mt.String())
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUndecodableDocument, err)
	}
	if format == "png" {
		return data, nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding %s page as png: %w", format, err)
	}
	return buf.Bytes(), nil
}

// pdfPageCount parses the PDF structure. The parser panics on some malformed
// inputs, so a panic is reported as an error.
func pdfPageCount(data []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}

func (a *Adapter) renderPDF(ctx context.Context, data []byte) ([]port.PageImage, error) {
	numPages, err := pdfPageCount(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUndecodableDocument, err)
	}
	if numPages == 0 {
		return nil, fmt.Errorf("%w: pdf has no pages", domain.ErrUndecodableDocument)
	}

	tmpDir, err := os.MkdirTemp("", "docextract-pp-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			a.log.Warn("failed to remove temp dir", zap.String("dir", tmpDir), zap.Error(rmErr))
		}
	}()

	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("writing temp pdf: %w", err)
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png [-l <max>] <in.pdf> <tmp/page>
	args := []string{"-r", strconv.Itoa(a.cfg.DPI), "-png"}
	if a.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(a.cfg.MaxPages))
	}
	args = append(args, in, prefix)
	if _, errb, err := a.runner.Run(ctx, nil, a.cfg.Pdftoppm, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w (%s)", err, truncate(strings.TrimSpace(string(errb)), 512))
	}

	// pdftoppm names pages prefix-1.png, or zero-padded prefix-01.png for
	// longer documents.
	matches, _ := filepath.Glob(prefix + "-*.png")
	type rendered struct {
		num  int
		path string
	}
	pages := make([]rendered, 0, len(matches))
	for _, m := range matches {
		base := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), "page-"), ".png")
		n, err := strconv.Atoi(base)
		if err != nil {
			continue
		}
		pages = append(pages, rendered{num: n, path: m})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].num < pages[j].num })
	if a.cfg.MaxPages > 0 && len(pages) > a.cfg.MaxPages {
		pages = pages[:a.cfg.MaxPages]
	}
	if len(pages) == 0 {
		return nil, errors.New("pdftoppm produced no images")
	}

	out := make([]port.PageImage, 0, len(pages))
	for i, p := range pages {
		b, err := os.ReadFile(p.path)
		if err != nil {
			return nil, fmt.Errorf("reading rendered page %d: %w", p.num, err)
		}
		out = append(out, port.PageImage{Number: i + 1, Data: b})
	}

	a.log.Debug("pdf rendered",
		zap.Int("pdf_pages", numPages),
		zap.Int("rendered", len(out)),
		zap.Int("dpi", a.cfg.DPI),
	)
	return out, nil
}

// ImageToText runs tesseract over one page image.
func (a *Adapter) ImageToText(ctx context.Context, page port.PageImage) (string, error) {
	// tesseract stdin stdout -l <lang>
	out, errb, err := a.runner.Run(ctx, page.Data, a.cfg.Tesseract, "stdin", "stdout", "-l", a.cfg.Lang)
	if err != nil {
		return "", fmt.Errorf("tesseract page %d: %w (%s)", page.Number, err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	return string(out), nil
}

// ImageToWordBoxes runs tesseract in TSV mode and returns the word-level rows.
func (a *Adapter) ImageToWordBoxes(ctx context.Context, page port.PageImage) ([]port.WordBox, error) {
	out, errb, err := a.runner.Run(ctx, page.Data, a.cfg.Tesseract, "stdin", "stdout", "-l", a.cfg.Lang, "tsv")
	if err != nil {
		return nil, fmt.Errorf("tesseract TSV page %d: %w (%s)", page.Number, err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	return ParseTSV(out, page.Number), nil
}
