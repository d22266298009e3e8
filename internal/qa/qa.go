// Package qa runs rule-based consistency checks over normalized fields.
package qa

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"docextract/internal/domain"
	"docextract/internal/textparse"
)

// DefaultTolerance is the absolute currency difference accepted between the
// line-item sum and the stated total.
const DefaultTolerance = 1.00

// CheckTotals sums the amounts of the line-item fields (names containing
// "item" or "line") and compares the sum to statedTotal. Unparseable values
// count as 0.
func CheckTotals(lineItems []domain.Field, statedTotal, tolerance float64) (bool, float64) {
	var sum float64
	for _, f := range lineItems {
		if !isLineItem(f.Name) || f.Value == nil {
			continue
		}
		if v, ok := textparse.ParseAmount(*f.Value); ok {
			sum += v
		}
	}
	return math.Abs(sum-statedTotal) <= tolerance, sum
}

func isLineItem(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "item") || strings.Contains(n, "line")
}

func isTotal(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), "total")
}

// StatedTotal reads a total field's value as a plain number, then via the
// shared amount matcher. Missing or unparseable values are 0.
func StatedTotal(f domain.Field) float64 {
	if f.Value == nil {
		return 0
	}
	s := strings.TrimSpace(*f.Value)
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return v
	}
	if v, ok := textparse.ParseAmount(s); ok {
		return v
	}
	return 0
}

// rule is one QA check. applies gates whether the rule runs at all.
type rule struct {
	ruleKey string
	applies func(fields []domain.Field) bool
	check   func(fields []domain.Field, tolerance float64) (passed bool, note string)
}

func fmtf(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func rules() []rule {
	return []rule{
		{
			ruleKey: domain.RuleTotalsMatch,
			applies: func(fields []domain.Field) bool {
				for _, f := range fields {
					if isTotal(f.Name) {
						return true
					}
				}
				return false
			},
			check: func(fields []domain.Field, tolerance float64) (bool, string) {
				var stated float64
				for _, f := range fields {
					if isTotal(f.Name) {
						stated = StatedTotal(f)
						break
					}
				}
				passed, sum := CheckTotals(fields, stated, tolerance)
				if passed {
					return true, ""
				}
				return false, fmt.Sprintf("line items sum %s vs stated total %s", fmtf(sum), fmtf(stated))
			},
		},
	}
}

// Checker runs the QA rule table.
type Checker struct {
	tolerance float64
	rules     []rule
}

// NewChecker creates a Checker. A negative tolerance uses DefaultTolerance.
func NewChecker(tolerance float64) *Checker {
	if tolerance < 0 || math.IsNaN(tolerance) {
		tolerance = DefaultTolerance
	}
	return &Checker{tolerance: tolerance, rules: rules()}
}

// Run applies every rule whose trigger matches and collects the verdicts.
func (c *Checker) Run(fields []domain.Field) domain.QAReport {
	report := domain.NewQAReport()
	var notes []string
	for _, r := range c.rules {
		if !r.applies(fields) {
			continue
		}
		passed, note := r.check(fields, c.tolerance)
		if passed {
			report.PassedRules = append(report.PassedRules, r.ruleKey)
		} else {
			report.FailedRules = append(report.FailedRules, r.ruleKey)
		}
		if note != "" {
			notes = append(notes, note)
		}
	}
	report.Notes = strings.Join(notes, "; ")
	return report
}
