// Package jsonextract pulls JSON values out of free-form model output.
//
// Models asked for strict JSON routinely wrap it in prose, markdown fences,
// or reasoning preambles. The scanner here finds the first balanced object
// or array substring, honoring string literals and escape sequences so
// braces inside strings don't fool the depth count.
package jsonextract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FirstObject returns the first balanced {...} substring of s.
func FirstObject(s string) (string, bool) {
	return first(s, '{', '}')
}

// FirstArray returns the first balanced [...] substring of s.
func FirstArray(s string) (string, bool) {
	return first(s, '[', ']')
}

// UnmarshalObject parses raw into v, trying the whole text first and falling
// back to the first balanced object substring when the full text is not
// valid JSON on its own.
func UnmarshalObject(raw string, v any) error {
	trimmed := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}
	obj, ok := FirstObject(trimmed)
	if !ok {
		return fmt.Errorf("no JSON object found in response")
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("parsing extracted object: %w", err)
	}
	return nil
}

// UnmarshalArray is UnmarshalObject for top-level arrays.
func UnmarshalArray(raw string, v any) error {
	trimmed := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}
	arr, ok := FirstArray(trimmed)
	if !ok {
		return fmt.Errorf("no JSON array found in response")
	}
	if err := json.Unmarshal([]byte(arr), v); err != nil {
		return fmt.Errorf("parsing extracted array: %w", err)
	}
	return nil
}

func first(s string, open, closing byte) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if start == -1 {
			if c == open {
				start = i
				depth = 1
			}
			continue
		}
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case open:
			if !inString {
				depth++
			}
		case closing:
			if inString {
				continue
			}
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
