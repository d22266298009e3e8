// Package export renders an ExtractionResult as CSV or XLSX.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"docextract/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// fieldColumns defines the header row of the field table.
var fieldColumns = []string{"Field", "Value", "Confidence", "Page"}

// CSVWriter wraps csv.Writer for exporting extraction results.
type CSVWriter struct {
	csv *csv.Writer
}

// NewCSVWriter creates a CSVWriter that writes CSV to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{csv: csv.NewWriter(w)}
}

// WriteResult writes the field table followed by a blank row and the summary.
func (w *CSVWriter) WriteResult(r *domain.ExtractionResult) error {
	if err := w.csv.Write(fieldColumns); err != nil {
		return err
	}
	for i := range r.Fields {
		if err := w.csv.Write(fieldRow(&r.Fields[i])); err != nil {
			return err
		}
	}
	if err := w.csv.Write([]string{}); err != nil {
		return err
	}
	for _, row := range summaryRows(r) {
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *CSVWriter) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *CSVWriter) Error() error {
	return w.csv.Error()
}

func fieldRow(f *domain.Field) []string {
	row := make([]string, len(fieldColumns))
	row[0] = f.Name
	if f.Value != nil {
		row[1] = *f.Value
	}
	row[2] = formatConfidence(f.Confidence)
	if f.Source != nil {
		row[3] = strconv.Itoa(f.Source.Page)
	}
	return row
}

func summaryRows(r *domain.ExtractionResult) [][]string {
	return [][]string{
		{"Document Type", string(r.DocType)},
		{"Overall Confidence", formatConfidence(r.OverallConfidence)},
		{"QA Passed", strings.Join(r.QA.PassedRules, ", ")},
		{"QA Failed", strings.Join(r.QA.FailedRules, ", ")},
		{"QA Notes", r.QA.Notes},
	}
}

func formatConfidence(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
