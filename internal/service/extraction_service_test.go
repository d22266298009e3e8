package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docextract/internal/config"
	"docextract/internal/domain"
	"docextract/internal/extractor"
	"docextract/internal/llm"
	"docextract/internal/port"
	"docextract/internal/service"
	"docextract/mocks"
)

const invoiceText = "ACME Medical Store\nInvoice No: INV-42\nDate: 12/05/2024\nItem1: 100.00\nItem2: 50.00\nTotal Amount: 150.00\n"

func setupTextExtractor(pages ...string) *mocks.MockTextExtractor {
	te := new(mocks.MockTextExtractor)
	images := make([]port.PageImage, len(pages))
	for i := range pages {
		images[i] = port.PageImage{Number: i + 1, Data: []byte{byte(i)}}
		te.On("ImageToText", mock.Anything, images[i]).Return(pages[i], nil)
	}
	te.On("Render", mock.Anything, mock.Anything, mock.Anything).Return(images, nil)
	return te
}

func newService(te port.TextExtractor, fe port.FieldExtractor, storage port.ObjectStorage) service.ExtractionService {
	return service.NewExtractionService(te, fe, storage, service.ExtractionOptions{
		OCRConcurrency: 2,
		TotalTolerance: 1.0,
		DefaultBucket:  "scans",
	}, nil)
}

func fieldNames(fields []domain.Field) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	return names
}

func TestExtractFromBytes_RequestOrderAndAlignment(t *testing.T) {
	te := setupTextExtractor("text")
	fe := new(mocks.MockFieldExtractor)
	fe.On("Extract", mock.Anything, mock.Anything).Return([]domain.RawField{
		{Name: "vendor", Value: domain.StringPtr("Acme"), Confidence: 0.8},
		{Name: "TotalAmount", Value: domain.StringPtr("10"), Confidence: 0.9},
		{Name: "Unrequested", Value: domain.StringPtr("x"), Confidence: 1},
		{Name: "Vendor", Value: domain.StringPtr("Acme Exact"), Confidence: 0.6},
	}, nil)

	requested := []string{"InvoiceNo", "Vendor", "TotalAmount"}
	result, err := newService(te, fe, nil).ExtractFromBytes(context.Background(), []byte("img"), "scan.png", requested)
	require.NoError(t, err)

	assert.Equal(t, requested, fieldNames(result.Fields))
	assert.Nil(t, result.Fields[0].Value)
	assert.Equal(t, 0.0, result.Fields[0].Confidence)
	assert.Equal(t, "Acme Exact", *result.Fields[1].Value, "exact name match wins over case-insensitive")
	assert.Equal(t, "10", *result.Fields[2].Value)
	for _, f := range result.Fields {
		require.NotNil(t, f.Source)
		assert.Equal(t, 1, f.Source.Page)
	}
}

func TestExtractFromBytes_ConfidenceClamped(t *testing.T) {
	te := setupTextExtractor("text")
	fe := new(mocks.MockFieldExtractor)
	fe.On("Extract", mock.Anything, mock.Anything).Return([]domain.RawField{
		{Name: "A", Confidence: 1.7},
		{Name: "B", Confidence: -0.3},
		{Name: "C", Confidence: math.NaN()},
		{Name: "D", Confidence: 0.5},
	}, nil)

	result, err := newService(te, fe, nil).ExtractFromBytes(context.Background(), []byte("img"), "scan.png", nil)
	require.NoError(t, err)

	require.Len(t, result.Fields, 4)
	assert.Equal(t, []string{"A", "B", "C", "D"}, fieldNames(result.Fields), "extractor order preserved without a request list")
	assert.Equal(t, 1.0, result.Fields[0].Confidence)
	assert.Equal(t, 0.0, result.Fields[1].Confidence)
	assert.Equal(t, 0.0, result.Fields[2].Confidence)
	assert.InDelta(t, 0.375, result.OverallConfidence, 1e-9)
}

func TestExtractFromBytes_NoFields(t *testing.T) {
	te := setupTextExtractor("")
	fe := new(mocks.MockFieldExtractor)
	fe.On("Extract", mock.Anything, mock.Anything).Return([]domain.RawField{}, nil)

	result, err := newService(te, fe, nil).ExtractFromBytes(context.Background(), []byte("img"), "scan.png", nil)
	require.NoError(t, err)
	assert.Empty(t, result.Fields)
	assert.Equal(t, 0.0, result.OverallConfidence)
	assert.Equal(t, domain.DocTypeUnknown, result.DocType)
	assert.Equal(t, []string{}, result.QA.PassedRules)
	assert.Equal(t, []string{}, result.QA.FailedRules)
}

func TestExtractFromBytes_FullTextAndClassification(t *testing.T) {
	te := setupTextExtractor("Invoice No: 1", "page two")
	fe := new(mocks.MockFieldExtractor)
	fe.On("Extract", mock.Anything, port.ExtractInput{
		Text:            "Invoice No: 1\n\npage two\n\n",
		DocType:         domain.DocTypeInvoice,
		RequestedFields: []string{"InvoiceNo"},
	}).Return([]domain.RawField{{Name: "InvoiceNo", Value: domain.StringPtr("1"), Confidence: 0.5}}, nil)

	result, err := newService(te, fe, nil).ExtractFromBytes(context.Background(), []byte("pdf"), "doc.pdf", []string{"InvoiceNo"})
	require.NoError(t, err)
	assert.Equal(t, domain.DocTypeInvoice, result.DocType)
	fe.AssertExpectations(t)
}

func TestExtractFromBytes_FileKindFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     domain.FileKind
	}{
		{"SCAN.PDF", domain.FileKindPDF},
		{"report.pdf", domain.FileKindPDF},
		{"photo.jpg", domain.FileKindImage},
		{"pdf", domain.FileKindImage},
		{"", domain.FileKindImage},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			te := new(mocks.MockTextExtractor)
			te.On("Render", mock.Anything, mock.Anything, tt.want).Return([]port.PageImage{}, nil)
			fe := new(mocks.MockFieldExtractor)
			fe.On("Extract", mock.Anything, mock.Anything).Return([]domain.RawField{}, nil)

			_, err := newService(te, fe, nil).ExtractFromBytes(context.Background(), []byte("x"), tt.filename, nil)
			require.NoError(t, err)
			te.AssertExpectations(t)
		})
	}
}

func TestExtractFromBytes_UndecodableIsFatal(t *testing.T) {
	te := new(mocks.MockTextExtractor)
	te.On("Render", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.Join(domain.ErrUndecodableDocument, errors.New("bad header")))
	fe := new(mocks.MockFieldExtractor)

	result, err := newService(te, fe, nil).ExtractFromBytes(context.Background(), []byte("junk"), "x.png", nil)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, domain.ErrUndecodableDocument))
	fe.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestExtractFromBytes_PageFailureContributesEmptyText(t *testing.T) {
	te := new(mocks.MockTextExtractor)
	pages := []port.PageImage{{Number: 1}, {Number: 2}}
	te.On("Render", mock.Anything, mock.Anything, mock.Anything).Return(pages, nil)
	te.On("ImageToText", mock.Anything, pages[0]).Return("", errors.New("tesseract: exit status 1"))
	te.On("ImageToText", mock.Anything, pages[1]).Return("Rx", nil)
	fe := new(mocks.MockFieldExtractor)
	fe.On("Extract", mock.Anything, mock.MatchedBy(func(in port.ExtractInput) bool {
		return in.Text == "\n\nRx\n\n"
	})).Return([]domain.RawField{}, nil)

	result, err := newService(te, fe, nil).ExtractFromBytes(context.Background(), []byte("pdf"), "a.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DocTypePrescription, result.DocType)
	fe.AssertExpectations(t)
}

func TestExtractFromBytes_QA(t *testing.T) {
	requested := []string{"InvoiceNo", "Item1", "Item2", "TotalAmount"}
	fe := new(mocks.MockFieldExtractor)
	fe.On("Extract", mock.Anything, mock.Anything).Return([]domain.RawField{
		{Name: "InvoiceNo", Value: domain.StringPtr("INV-42"), Confidence: 0.9},
		{Name: "Item1", Value: domain.StringPtr("100.00"), Confidence: 0.9},
		{Name: "Item2", Value: domain.StringPtr("50.00"), Confidence: 0.9},
		{Name: "TotalAmount", Value: domain.StringPtr("200.00"), Confidence: 0.9},
	}, nil)

	result, err := newService(setupTextExtractor(invoiceText), fe, nil).
		ExtractFromBytes(context.Background(), []byte("img"), "a.png", requested)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.RuleTotalsMatch}, result.QA.FailedRules)
	assert.Contains(t, result.QA.Notes, "150.00")
	assert.Contains(t, result.QA.Notes, "200.00")
}

func TestExtractFromBytes_NoTotalFieldSkipsQA(t *testing.T) {
	result, err := newService(setupTextExtractor(invoiceText), extractor.NewHeuristicExtractor(), nil).
		ExtractFromBytes(context.Background(), []byte("img"), "a.png", []string{"InvoiceNo", "Vendor"})
	require.NoError(t, err)
	assert.Empty(t, result.QA.PassedRules)
	assert.Empty(t, result.QA.FailedRules)
	assert.Equal(t, "INV-42", *result.Fields[0].Value)
}

func TestExtractFromBytes_IdempotentJSON(t *testing.T) {
	svc := newService(setupTextExtractor(invoiceText), extractor.NewHeuristicExtractor(), nil)

	first, err := svc.ExtractFromBytes(context.Background(), []byte("img"), "a.png", nil)
	require.NoError(t, err)
	second, err := svc.ExtractFromBytes(context.Background(), []byte("img"), "a.png", nil)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Contains(t, string(a), `"doc_type":"invoice"`)
	assert.Contains(t, string(a), `"source":{"page":1}`)
}

func TestExtractFromBytes_LLMFailureMatchesHeuristicOnly(t *testing.T) {
	chat := new(mocks.MockChatCompleter)
	chat.On("Complete", mock.Anything, mock.Anything).
		Return(nil, &llm.TransientError{Provider: "openrouter", Err: context.DeadlineExceeded})
	cfg := &config.LLMConfig{Provider: "openrouter", APIKey: "k", Model: "gpt-4o-mini", MaxTokens: 800}

	withLLM := newService(setupTextExtractor(invoiceText), extractor.New(chat, cfg, 4000, nil), nil)
	heuristicOnly := newService(setupTextExtractor(invoiceText), extractor.New(nil, cfg, 4000, nil), nil)

	requested := []string{"InvoiceNo", "InvoiceDate", "TotalAmount", "Item1"}
	got, err := withLLM.ExtractFromBytes(context.Background(), []byte("img"), "a.png", requested)
	require.NoError(t, err)
	want, err := heuristicOnly.ExtractFromBytes(context.Background(), []byte("img"), "a.png", requested)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	chat.AssertNumberOfCalls(t, "Complete", 1)
}

func TestExtractFromStorage(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	storage.On("Download", mock.Anything, "scans", "uploads/2024/bill.PDF").Return([]byte("pdf"), nil)

	te := new(mocks.MockTextExtractor)
	te.On("Render", mock.Anything, []byte("pdf"), domain.FileKindPDF).Return([]port.PageImage{}, nil)
	fe := new(mocks.MockFieldExtractor)
	fe.On("Extract", mock.Anything, mock.Anything).Return([]domain.RawField{}, nil)

	_, err := newService(te, fe, storage).ExtractFromStorage(context.Background(), "", "uploads/2024/bill.PDF", nil)
	require.NoError(t, err)
	storage.AssertExpectations(t)
	te.AssertExpectations(t)
}

func TestExtractFromStorage_SniffsPDFWithoutExtension(t *testing.T) {
	pdf := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")
	storage := new(mocks.MockObjectStorage)
	storage.On("Download", mock.Anything, "scans", "inbox/scan-0042").Return(pdf, nil)

	te := new(mocks.MockTextExtractor)
	te.On("Render", mock.Anything, pdf, domain.FileKindPDF).Return([]port.PageImage{}, nil)
	fe := new(mocks.MockFieldExtractor)
	fe.On("Extract", mock.Anything, mock.Anything).Return([]domain.RawField{}, nil)

	_, err := newService(te, fe, storage).ExtractFromStorage(context.Background(), "", "inbox/scan-0042", nil)
	require.NoError(t, err)
	te.AssertExpectations(t)
}

func TestExtractFromStorage_ImageKeyWithoutExtension(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	storage.On("Download", mock.Anything, "scans", "inbox/photo").Return([]byte("\x89PNG\r\n\x1a\n"), nil)

	te := new(mocks.MockTextExtractor)
	te.On("Render", mock.Anything, mock.Anything, domain.FileKindImage).Return([]port.PageImage{}, nil)
	fe := new(mocks.MockFieldExtractor)
	fe.On("Extract", mock.Anything, mock.Anything).Return([]domain.RawField{}, nil)

	_, err := newService(te, fe, storage).ExtractFromStorage(context.Background(), "", "inbox/photo", nil)
	require.NoError(t, err)
	te.AssertExpectations(t)
}

func TestExtractFromStorage_Errors(t *testing.T) {
	_, err := newService(new(mocks.MockTextExtractor), new(mocks.MockFieldExtractor), nil).
		ExtractFromStorage(context.Background(), "b", "k", nil)
	assert.ErrorIs(t, err, domain.ErrStorageNotConfigured)

	storage := new(mocks.MockObjectStorage)
	storage.On("Download", mock.Anything, "other", "missing.png").Return(nil, domain.ErrObjectNotFound)
	_, err = newService(new(mocks.MockTextExtractor), new(mocks.MockFieldExtractor), storage).
		ExtractFromStorage(context.Background(), "other", "missing.png", nil)
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)
}

func TestWordBoxes(t *testing.T) {
	te := new(mocks.MockTextExtractor)
	pages := []port.PageImage{{Number: 1}}
	te.On("Render", mock.Anything, mock.Anything, domain.FileKindImage).Return(pages, nil)
	te.On("ImageToWordBoxes", mock.Anything, pages[0]).Return([]port.WordBox{{Text: "Total", PageNum: 1}}, nil)

	boxes, err := newService(te, new(mocks.MockFieldExtractor), nil).WordBoxes(context.Background(), []byte("img"), "a.jpg")
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, "Total", boxes[0].Text)
}
