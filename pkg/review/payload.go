package review

import (
	"fmt"
	"strings"
)

// Payload is the lenient, typed view of one role's raw review output. Raw
// payloads arrive as untrusted maps; every field tolerates a missing, short,
// or wrongly typed value.
type Payload struct {
	Stance      string
	Verdict     string
	Questions   []string
	Risks       []string
	NextActions []string
	PlanSteps   []string
	Guardrails  []string
	Decision    string
	Plan        []string
	Metrics     []string

	populated int
}

// Empty reports whether the payload had zero populated keys. An empty payload
// produces the "no position" placeholder instead of the normal template.
func (p Payload) Empty() bool {
	return p.populated == 0
}

// DecodePayload extracts a typed payload from an untrusted map.
func DecodePayload(raw map[string]any) Payload {
	p := Payload{
		Stance:      stringField(raw, "stance", "position"),
		Verdict:     stringField(raw, "verdict", "summary"),
		Questions:   listField(raw, "questions", "difficult_questions"),
		Risks:       listField(raw, "risks"),
		NextActions: listField(raw, "next_actions", "actions"),
		PlanSteps:   listField(raw, "plan_steps", "execution_plan"),
		Guardrails:  listField(raw, "budget_guardrails", "guardrails"),
		Decision:    stringField(raw, "decision"),
		Plan:        listField(raw, "plan"),
		Metrics:     listField(raw, "metrics"),
	}
	for _, v := range raw {
		if populatedValue(v) {
			p.populated++
		}
	}
	return p
}

func populatedValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func stringField(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func listField(raw map[string]any, keys ...string) []string {
	for _, key := range keys {
		items, ok := raw[key].([]any)
		if !ok {
			continue
		}
		var out []string
		for _, item := range items {
			switch v := item.(type) {
			case string:
				if strings.TrimSpace(v) != "" {
					out = append(out, strings.TrimSpace(v))
				}
			case map[string]any:
				// Tolerate object-shaped list items by picking a text-ish key.
				if s := stringField(v, "text", "title", "description"); s != "" {
					out = append(out, s)
				}
			case float64:
				out = append(out, fmt.Sprintf("%v", v))
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}
