// Package textparse holds the regex matchers shared by the heuristic field
// extractor and the QA checker.
package textparse

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// Optional currency token, digits with optional 2-3 digit comma groups
	// (covers both 1,234,567 and 12,34,567), up to two decimals.
	amountRe = regexp.MustCompile(`(?i)(?:\b(?:rs\.?|inr|usd|eur|gbp)\s*)?\b(\d+(?:,\d{2,3})*(?:\.\d{1,2})?)\b`)
	dateRe   = regexp.MustCompile(`\b(\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|\d{4}[-/]\d{1,2}[-/]\d{1,2})\b`)
	dosageRe = regexp.MustCompile(`(?i)\d+\s*(mg|ml|tab|tablet|capsule)`)
)

// ParseAmount returns the first monetary amount in s.
func ParseAmount(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	m := amountRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseDate returns the first date-like token in s, unnormalized.
func ParseDate(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	m := dateRe.FindString(s)
	return m, m != ""
}

// DosageLines returns the trimmed lines of s that mention a dosage such as
// "500mg" or "2 tablet".
func DosageLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if dosageRe.MatchString(line) {
			out = append(out, strings.TrimSpace(line))
		}
	}
	return out
}

// FormatAmount renders v with the fewest digits that round-trip.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
