package notes

import (
	"fmt"
	"strings"
)

// ParseError reports model output that could not be parsed as JSON even
// after carving and repair.
type ParseError struct {
	Stage string
	Raw   string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: model output is not valid JSON: %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// carveJSON extracts the first complete JSON object or array from raw model
// output, tolerating prose and markdown fences around it. Braces inside
// string literals are ignored.
func carveJSON(raw string) (string, bool) {
	start := -1
	var open, close byte
	for i := 0; i < len(raw); i++ {
		if raw[i] == '{' {
			start, open, close = i, '{', '}'
			break
		}
		if raw[i] == '[' {
			start, open, close = i, '[', ']'
			break
		}
	}
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}

// stripFences removes a leading/trailing markdown code fence if present.
func stripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
