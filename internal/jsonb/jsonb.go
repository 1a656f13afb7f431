// Package jsonb renders JSON column values on a single line.
package jsonb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Compact renders v as single-line JSON. Strings and byte slices are taken
// as JSON text and must parse; other values are marshaled.
func Compact(v any) (string, error) {
	if v == nil {
		return "null", nil
	}

	var raw []byte
	switch x := v.(type) {
	case string:
		raw = []byte(x)
	case []byte:
		raw = x
	case json.RawMessage:
		raw = x
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(b), nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	return buf.String(), nil
}

// IsJSON reports whether s holds a JSON object or array
func IsJSON(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return false
	}
	return json.Valid([]byte(s))
}

// Truncate shortens s to at most maxLen runes, ending with "...". It cuts at
// a delimiter when one lies in the second half of the kept text.
func Truncate(s string, maxLen int) string {
	if maxLen <= 3 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}

	runes := []rune(s)
	kept := string(runes[:maxLen-3])
	if i := strings.LastIndexAny(kept, " ,:{}[]"); i > len(kept)/2 {
		kept = kept[:i+1]
	}
	return kept + "..."
}
