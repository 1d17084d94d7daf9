package council

import "boardroom/pkg/review"

// roleSpec carries the generation configuration for one reviewer role.
// Dispatch is keyed by the stable review.Role enum, never by matching on
// human-readable display names.
type roleSpec struct {
	SystemPrompt string
	Schema       map[string]any
}

//nolint:gochecknoglobals // Static dispatch table, read-only.
var roleSpecs = map[review.Role]roleSpec{
	review.RoleCEO: {
		SystemPrompt: "You are the CEO on an investment review panel. Judge market fit, " +
			"differentiation, and strategic upside of the submitted idea. Be blunt.",
		Schema: reviewerSchema("next_actions"),
	},
	review.RoleCTO: {
		SystemPrompt: "You are the CTO on an investment review panel. Judge technical " +
			"feasibility, build cost, and execution risk of the submitted idea.",
		Schema: reviewerSchema("plan_steps"),
	},
	review.RoleCFO: {
		SystemPrompt: "You are the CFO on an investment review panel. Judge unit " +
			"economics, cash exposure, and payback of the submitted idea.",
		Schema: reviewerSchema("budget_guardrails"),
	},
	review.RoleChair: {
		SystemPrompt: "You chair an investment review panel. Synthesize the CEO, CTO, " +
			"and CFO reviews into a single decision with a concrete plan and metrics.",
		Schema: chairSchema(),
	},
}

func reviewerSchema(closingKey string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"stance":  map[string]any{"type": "string"},
			"verdict": map[string]any{"type": "string"},
			"questions": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"risks": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			closingKey: map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []any{"stance", "verdict", "questions", "risks", closingKey},
	}
}

func chairSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"decision": map[string]any{
				"type": "string",
				"enum": []any{"go", "no_go", "verify"},
			},
			"verdict": map[string]any{"type": "string"},
			"questions": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"risks": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"plan": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"metrics": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []any{"decision", "verdict", "questions", "risks", "plan", "metrics"},
	}
}
