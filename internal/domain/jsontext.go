package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?})\\s*```")

// ExtractJSONObject pulls a JSON object out of model text. It tries a fenced
// ```json block, then the first balanced top-level object, then the whole
// text. Numbers decode as json.Number.
func ExtractJSONObject(subject, text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, invalid(subject, "output is empty")
	}

	candidates := make([]string, 0, 3)
	if match := fencedJSONPattern.FindStringSubmatch(text); match != nil {
		candidates = append(candidates, match[1])
	}
	if object, ok := firstBalancedObject(text); ok {
		candidates = append(candidates, object)
	}
	candidates = append(candidates, strings.TrimSpace(text))

	var lastErr error
	for _, candidate := range candidates {
		value, err := decodeJSON(candidate)
		if err != nil {
			lastErr = err
			continue
		}

		object, ok := value.(map[string]any)
		if !ok {
			return nil, invalid(subject, "output must be a JSON object")
		}
		return object, nil
	}

	if !strings.Contains(text, "{") {
		return nil, invalid(subject, "no JSON object found")
	}

	return nil, invalid(subject, "output is not valid JSON: %v", lastErr)
}

func decodeJSON(text string) (any, error) {
	decoder := json.NewDecoder(strings.NewReader(text))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if decoder.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}

	return value, nil
}

// firstBalancedObject scans for the first top-level {...} span, tracking
// string literals and escapes so braces inside strings are ignored.
func firstBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}

func requireKeys(subject string, object map[string]any, keys ...string) error {
	for _, key := range keys {
		if _, ok := object[key]; !ok {
			return invalid(subject, "missing key: %s", key)
		}
	}

	return nil
}

func requireList(subject string, value any, name string) ([]any, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, invalid(subject, "%s must be list", name)
	}

	return list, nil
}

// stringify renders a decoded JSON value as text: strings stay as they are,
// everything else is re-encoded.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return fmt.Sprint(value)
	}

	return strings.TrimSpace(buf.String())
}

func marshalContent(value any) (json.RawMessage, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return nil, err
	}

	return json.RawMessage(bytes.TrimSpace(buf.Bytes())), nil
}
