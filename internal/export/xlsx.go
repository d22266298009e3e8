package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"docextract/internal/domain"
)

const (
	fieldsSheet  = "Fields"
	summarySheet = "Summary"
)

// WriteXLSX writes r as a workbook with a Fields sheet and a Summary sheet.
func WriteXLSX(w io.Writer, r *domain.ExtractionResult) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", fieldsSheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}

	header := make([]interface{}, len(fieldColumns))
	for i, c := range fieldColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(fieldsSheet, "A1", &header); err != nil {
		return err
	}
	if len(r.Fields) > 0 {
		style, err := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00
		if err != nil {
			return err
		}
		end, _ := excelize.CoordinatesToCellName(3, len(r.Fields)+1)
		if err := f.SetCellStyle(fieldsSheet, "C2", end, style); err != nil {
			return err
		}
	}

	for i := range r.Fields {
		fld := &r.Fields[i]
		row := []interface{}{fld.Name, "", fld.Confidence, ""}
		if fld.Value != nil {
			row[1] = *fld.Value
		}
		if fld.Source != nil {
			row[3] = fld.Source.Page
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(fieldsSheet, cell, &row); err != nil {
			return err
		}
	}

	for i, sr := range summaryRows(r) {
		row := []interface{}{sr[0], sr[1]}
		if i == 1 {
			row[1] = r.OverallConfidence
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
