package extractor

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"docextract/internal/domain"
	"docextract/internal/port"
	"docextract/internal/textparse"
)

const (
	defaultConfidence = 0.5
	totalConfidence   = 0.7
	itemsConfidence   = 0.6
)

var (
	invoiceNoRe = regexp.MustCompile(`(?i)\binvoice\s*(?:(?:no\.?|number)[:\s]*|:\s*)([A-Z0-9][A-Z0-9-]*)`)
	// Shared by the patient and doctor fields: the first labeled name wins
	// regardless of which role the label names.
	personRe = regexp.MustCompile(`(?i)\b(?:patient|doctor|dr\.?)\s*:?\s*([A-Z][a-z]+\s*[A-Za-z]*)`)
)

// fieldRule maps a field-name predicate to a handler. Every matching rule
// runs in table order; a rule replaces the value and confidence only when
// its handler reports found.
type fieldRule struct {
	ruleKey string
	matches func(lowerName string) bool
	extract func(text string) (value *string, confidence float64, found bool)
}

func heuristicRules() []fieldRule {
	return []fieldRule{
		{
			ruleKey: "invoice_no",
			matches: func(n string) bool { return strings.HasPrefix(n, "invoice") },
			extract: func(text string) (*string, float64, bool) {
				v := firstGroup(invoiceNoRe, text)
				return v, defaultConfidence, v != nil
			},
		},
		{
			// Date always overwrites, so a date-like name never keeps an
			// invoice code.
			ruleKey: "date",
			matches: func(n string) bool { return strings.HasSuffix(n, "date") },
			extract: func(text string) (*string, float64, bool) {
				if d, ok := textparse.ParseDate(text); ok {
					return domain.StringPtr(d), defaultConfidence, true
				}
				return nil, defaultConfidence, true
			},
		},
		{
			ruleKey: "total",
			matches: func(n string) bool { return strings.HasPrefix(n, "total") },
			extract: func(text string) (*string, float64, bool) {
				if v, ok := textparse.ParseAmount(text); ok {
					return domain.StringPtr(textparse.FormatAmount(v)), totalConfidence, true
				}
				return nil, defaultConfidence, false
			},
		},
		{
			ruleKey: "person",
			matches: func(n string) bool {
				return strings.HasPrefix(n, "patient") || strings.HasPrefix(n, "doctor")
			},
			extract: func(text string) (*string, float64, bool) {
				v := firstGroup(personRe, text)
				return v, defaultConfidence, v != nil
			},
		},
		{
			ruleKey: "items",
			matches: func(n string) bool {
				return strings.HasSuffix(n, "items") || strings.Contains(n, "prescription")
			},
			extract: func(text string) (*string, float64, bool) {
				lines := textparse.DosageLines(text)
				if len(lines) == 0 {
					return nil, defaultConfidence, false
				}
				b, err := json.Marshal(lines)
				if err != nil {
					return nil, defaultConfidence, false
				}
				return domain.StringPtr(string(b)), itemsConfidence, true
			},
		},
	}
}

func firstGroup(re *regexp.Regexp, text string) *string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return domain.StringPtr(strings.TrimSpace(m[1]))
}

// HeuristicExtractor is the deterministic, offline extractor. It never
// returns an error.
type HeuristicExtractor struct {
	rules []fieldRule
}

// NewHeuristicExtractor creates a HeuristicExtractor with the default rule table.
func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{rules: heuristicRules()}
}

// Extract returns one RawField per requested name, in order. An empty request
// list uses domain.DefaultRequestedFields.
func (h *HeuristicExtractor) Extract(_ context.Context, input port.ExtractInput) ([]domain.RawField, error) {
	names := input.RequestedFields
	if len(names) == 0 {
		names = domain.DefaultRequestedFields
	}

	out := make([]domain.RawField, 0, len(names))
	for _, name := range names {
		out = append(out, h.extractField(name, input.Text))
	}
	return out, nil
}

func (h *HeuristicExtractor) extractField(name, text string) domain.RawField {
	lower := strings.ToLower(name)
	field := domain.RawField{Name: name, Confidence: defaultConfidence}
	for _, r := range h.rules {
		if !r.matches(lower) {
			continue
		}
		if v, conf, found := r.extract(text); found {
			field.Value, field.Confidence = v, conf
		}
	}
	return field
}
