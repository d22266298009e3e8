package domain

// FieldSource records where in the document a field was found.
type FieldSource struct {
	Page int `json:"page"`
}

// Field is a single extracted value after normalization.
type Field struct {
	Name       string       `json:"name"`
	Value      *string      `json:"value"`
	Confidence float64      `json:"confidence"`
	Source     *FieldSource `json:"source,omitempty"`
}

// RawField is an extractor candidate before normalization. Confidence may be
// outside [0,1] here.
type RawField struct {
	Name       string  `json:"name"`
	Value      *string `json:"value"`
	Confidence float64 `json:"confidence"`
}

// QAReport holds the outcome of the rule-based quality checks.
type QAReport struct {
	PassedRules []string `json:"passed_rules"`
	FailedRules []string `json:"failed_rules"`
	Notes       string   `json:"notes"`
}

// NewQAReport returns a report with non-nil rule slices so it serializes as [].
func NewQAReport() QAReport {
	return QAReport{PassedRules: []string{}, FailedRules: []string{}}
}

// ExtractionResult is the payload produced for one document.
type ExtractionResult struct {
	DocType           DocType  `json:"doc_type"`
	Fields            []Field  `json:"fields"`
	OverallConfidence float64  `json:"overall_confidence"`
	QA                QAReport `json:"qa"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
