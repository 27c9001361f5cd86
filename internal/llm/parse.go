package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when a model reply contains nothing decodable.
var ErrNoJSON = errors.New("no JSON payload in model output")

// StripCodeFences removes a surrounding markdown code fence, if present.
// Models frequently wrap structured output in ```json fences even when asked
// not to.
func StripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "```json") {
		t = strings.TrimPrefix(t, "```json")
		t = strings.TrimPrefix(t, "```")
		if idx := strings.LastIndex(t, "```"); idx != -1 {
			t = t[:idx]
		}
		return strings.TrimSpace(t)
	}
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```")
		if idx := strings.LastIndex(t, "```"); idx != -1 {
			t = t[:idx]
		}
		return strings.TrimSpace(t)
	}
	return t
}

// FirstJSONValue returns the first balanced JSON object or array in s,
// respecting string literals and escapes. Empty string when none is found.
func FirstJSONValue(s string) string {
	start := -1
	var open, close byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			start = i
			open = s[i]
			if open == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// DecodeStructured extracts the first JSON value from a model reply (fences
// stripped) and unmarshals it into v. The caller decides what a decode
// failure means; this function never guesses.
func DecodeStructured(reply string, v interface{}) error {
	payload := FirstJSONValue(StripCodeFences(reply))
	if payload == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return err
	}
	return nil
}
