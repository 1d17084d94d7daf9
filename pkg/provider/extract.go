package provider

import (
	"encoding/json"
	"strings"

	"boardroom/pkg/provider/generr"
)

// ContentText flattens a response content value into plain text. Backends
// return either a single string or a list of typed parts; textual parts are
// concatenated, everything else is ignored.
func ContentText(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var sb strings.Builder
		for _, part := range v {
			switch p := part.(type) {
			case string:
				sb.WriteString(p)
			case map[string]any:
				if text, ok := p["text"].(string); ok {
					sb.WriteString(text)
				}
			}
		}
		return sb.String()
	default:
		return ""
	}
}

// ParseJSONObject parses text into a JSON object, stripping markdown code
// fences first. A payload that is valid JSON but not an object, or that fails
// to parse entirely, is a parse error, never silently swallowed.
func ParseJSONObject(text string) (map[string]any, error) {
	cleaned := StripCodeFences(text)
	if strings.TrimSpace(cleaned) == "" {
		return nil, generr.New(generr.ErrorTypeParse, "empty response text")
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		return nil, generr.NewWithCause(generr.ErrorTypeParse, err, "response is not a JSON object")
	}
	if obj == nil {
		return nil, generr.New(generr.ErrorTypeParse, "response decoded to null")
	}
	return obj, nil
}

// StripCodeFences removes a surrounding markdown code fence (``` or ```json)
// from text, returning the inner payload.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop the language tag on the opening fence line.
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(trimmed[:idx])
		if firstLine == "" || isLanguageTag(firstLine) {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func isLanguageTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
