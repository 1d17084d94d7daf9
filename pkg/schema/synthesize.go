// Package schema synthesizes stub values from JSON Schema fragments.
//
// The synthesizer exists to keep generation running when no canned fixture is
// available: given any schema fragment, it produces a value conforming to the
// declared shape. It never fails; malformed fragments resolve to an empty
// object.
package schema

import "strings"

// Synthesize builds a stub value for a JSON Schema node. keyHint is the
// property name the node was reached through, used to pick nicer stubs for
// keys that look like emails or links.
func Synthesize(node map[string]any, keyHint string) any {
	if node == nil {
		return map[string]any{}
	}

	node = resolveComposition(node)

	if v, ok := node["const"]; ok {
		return clone(v)
	}
	if v, ok := node["default"]; ok {
		return clone(v)
	}
	if enum, ok := node["enum"].([]any); ok && len(enum) > 0 {
		return clone(enum[0])
	}

	switch declaredType(node) {
	case "string":
		return stubString(node, keyHint)
	case "number", "integer":
		if min, ok := asFloat(node["minimum"]); ok {
			return min
		}
		return float64(0)
	case "boolean":
		return false
	case "array":
		items, _ := node["items"].(map[string]any)
		return []any{Synthesize(items, keyHint)}
	case "object":
		return stubObject(node)
	default:
		// No usable type declaration. If it carries properties treat it as an
		// object anyway; otherwise degrade to an empty object.
		if _, ok := node["properties"]; ok {
			return stubObject(node)
		}
		if _, ok := node["required"]; ok {
			return stubObject(node)
		}
		return map[string]any{}
	}
}

// resolveComposition collapses oneOf/anyOf to their first branch and
// shallow-merges allOf branches into a single node.
func resolveComposition(node map[string]any) map[string]any {
	for _, kw := range []string{"oneOf", "anyOf"} {
		if branches, ok := node[kw].([]any); ok && len(branches) > 0 {
			if first, ok := branches[0].(map[string]any); ok {
				return resolveComposition(first)
			}
			return map[string]any{}
		}
	}
	if branches, ok := node["allOf"].([]any); ok && len(branches) > 0 {
		merged := map[string]any{}
		for k, v := range node {
			if k != "allOf" {
				merged[k] = v
			}
		}
		for _, b := range branches {
			bm, ok := b.(map[string]any)
			if !ok {
				continue
			}
			bm = resolveComposition(bm)
			for k, v := range bm {
				if _, exists := merged[k]; !exists {
					merged[k] = v
				}
			}
		}
		return merged
	}
	return node
}

func declaredType(node map[string]any) string {
	switch t := node["type"].(type) {
	case string:
		return t
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s != "null" {
				return s
			}
		}
	}
	return ""
}

func stubString(node map[string]any, keyHint string) string {
	format, _ := node["format"].(string)
	switch format {
	case "date-time":
		return "1970-01-01T00:00:00Z"
	case "date":
		return "1970-01-01"
	case "email":
		return "stub@example.com"
	case "uri":
		return "https://example.com"
	}
	hint := strings.ToLower(keyHint)
	switch {
	case strings.Contains(hint, "email"):
		return "stub@example.com"
	case strings.Contains(hint, "url"), strings.Contains(hint, "link"):
		return "https://example.com"
	}
	return "stub value"
}

func stubObject(node map[string]any) map[string]any {
	out := map[string]any{}

	props, _ := node["properties"].(map[string]any)
	for name, sub := range props {
		subSchema, _ := sub.(map[string]any)
		out[name] = Synthesize(subSchema, name)
	}

	// Required keys without a matching property declaration still get a value,
	// so validation against the schema cannot fail on absence.
	if required, ok := node["required"].([]any); ok {
		for _, r := range required {
			name, ok := r.(string)
			if !ok {
				continue
			}
			if _, exists := out[name]; exists {
				continue
			}
			if name == "meta" {
				out[name] = metaStub()
				continue
			}
			out[name] = map[string]any{}
		}
	}

	// Envelope-shaped outputs stay non-trivial even when the meta property is
	// declared without any detail.
	if v, exists := out["meta"]; exists {
		if m, ok := v.(map[string]any); ok && len(m) == 0 {
			out["meta"] = metaStub()
		}
	}

	return out
}

func metaStub() map[string]any {
	return map[string]any{
		"agent_id":     "stub",
		"generated_at": "1970-01-01T00:00:00Z",
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = clone(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = clone(val)
		}
		return out
	default:
		return v
	}
}
