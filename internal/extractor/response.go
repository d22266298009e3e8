package extractor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"docextract/internal/domain"
)

// fieldsSchema constrains the field array returned by the model. Values are
// free-form and stringified afterwards.
const fieldsSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["name"],
    "properties": {
      "name": {"type": "string"},
      "confidence": {"type": ["number", "string", "null"]}
    }
  }
}`

var compiledFieldsSchema = jsonschema.MustCompileString("fields.json", fieldsSchema)

var (
	errNoJSON         = errors.New("no JSON found in response")
	errUnexpectedForm = errors.New("response is neither a field array nor an object with \"fields\"")
)

// ParseFieldsResponse turns LLM message content into raw fields. Content is
// tried as JSON directly, then inside a markdown code fence, then as the span
// from the first '{' to the last '}'.
func ParseFieldsResponse(content string) ([]domain.RawField, error) {
	doc, err := decodeContent(content)
	if err != nil {
		return nil, err
	}

	var arr interface{}
	switch v := doc.(type) {
	case []interface{}:
		arr = v
	case map[string]interface{}:
		f, ok := v["fields"]
		if !ok {
			return nil, errUnexpectedForm
		}
		arr = f
	default:
		return nil, errUnexpectedForm
	}

	if err := compiledFieldsSchema.Validate(arr); err != nil {
		return nil, fmt.Errorf("response does not match schema: %w", err)
	}

	items := arr.([]interface{})
	out := make([]domain.RawField, 0, len(items))
	for _, it := range items {
		obj := it.(map[string]interface{})
		name, _ := obj["name"].(string)
		value, err := stringifyValue(obj["value"])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out = append(out, domain.RawField{
			Name:       name,
			Value:      value,
			Confidence: parseConfidence(obj["confidence"]),
		})
	}
	return out, nil
}

func decodeContent(content string) (interface{}, error) {
	if v, err := decodeJSON(content); err == nil {
		return v, nil
	}
	if inner, ok := codeFence(content); ok {
		if v, err := decodeJSON(inner); err == nil {
			return v, nil
		}
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, errNoJSON
	}
	v, err := decodeJSON(content[start : end+1])
	if err != nil {
		return nil, fmt.Errorf("decoding embedded object: %w", err)
	}
	return v, nil
}

// decodeJSON decodes exactly one JSON value, keeping numbers as json.Number.
func decodeJSON(s string) (interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

func codeFence(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start < 0 {
		return "", false
	}
	rest := s[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

func stringifyValue(v interface{}) (*string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return domain.StringPtr(t), nil
	case json.Number:
		return domain.StringPtr(t.String()), nil
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(t); err != nil {
			return nil, err
		}
		return domain.StringPtr(strings.TrimRight(buf.String(), "\n")), nil
	}
}

func parseConfidence(v interface{}) float64 {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
