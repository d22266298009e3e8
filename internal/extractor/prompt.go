package extractor

import (
	"strings"

	"docextract/internal/domain"
)

const systemPrompt = "You are a reliable extractor that responds only with JSON matching the requested schema."

// BuildUserPrompt returns the user message for the LLM extraction call. The
// document text is cut to the first excerptChars runes.
func BuildUserPrompt(text string, docType domain.DocType, fields []string, excerptChars int) string {
	requested := "auto"
	if len(fields) > 0 {
		requested = strings.Join(fields, ", ")
	}

	var b strings.Builder
	b.WriteString("Extract the following fields from the document text and return a JSON array of objects ")
	b.WriteString("with keys name, value, confidence (0-1). Use null for a value that is not present.\n")
	b.WriteString("Fields: ")
	b.WriteString(requested)
	b.WriteString("\nDocument type: ")
	b.WriteString(string(docType))
	b.WriteString("\nDocument text:\n\n")
	b.WriteString(excerpt(text, excerptChars))
	return b.String()
}

func excerpt(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
