// Package classifier routes document text to a document type using keyword
// heuristics.
package classifier

import (
	"strings"

	"docextract/internal/domain"
)

// Classify maps the full document text to a DocType. Rules are checked in
// order and the first match wins, so invoice and prescription keywords take
// precedence over the generic bill rule.
func Classify(text string) domain.DocType {
	t := strings.ToLower(text)
	switch {
	case containsAny(t, "invoice", "invoice no"):
		return domain.DocTypeInvoice
	case containsAny(t, "prescription", "rx", "patient"):
		return domain.DocTypePrescription
	case strings.Contains(t, "total") && containsAny(t, "bill", "amount"):
		if containsAny(t, "patient", "consultation") {
			return domain.DocTypeMedicalBill
		}
		return domain.DocTypeBill
	default:
		return domain.DocTypeUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
