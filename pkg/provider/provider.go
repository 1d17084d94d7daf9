// Package provider implements the structured-output generation contract with
// two interchangeable implementations: a deterministic fixture-driven stub and
// a live OpenAI-protocol client with compatibility retries.
package provider

import (
	"context"
	"strings"
)

// Meta identifies the target agent for a generation call.
type Meta struct {
	AgentID string `json:"agent_id"`
	Model   string `json:"model,omitempty"`
}

// Request describes one structured-output generation call.
type Request struct {
	System      string         `json:"system"`
	Prompt      string         `json:"prompt"`
	Schema      map[string]any `json:"schema"`
	Temperature float64        `json:"temperature"`
	MaxTokens   int            `json:"max_tokens"`
	Meta        Meta           `json:"meta"`
}

// Usage reports token accounting for a generation call. Zero-filled when the
// backend does not report usage.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Result pairs generated data with its usage accounting.
type Result struct {
	Data  map[string]any `json:"data"`
	Usage Usage          `json:"usage"`
}

// Generator is the structured-output provider contract. Implementations never
// return a nil or non-object payload: every failure mode surfaces as a typed
// error from pkg/provider/generr.
type Generator interface {
	// GenerateJSON produces a parsed JSON object for the request.
	GenerateJSON(ctx context.Context, req Request) (map[string]any, error)

	// GenerateJSONWithUsage is the usage-tracking variant of GenerateJSON.
	GenerateJSONWithUsage(ctx context.Context, req Request) (Result, error)
}

// agentAliases canonicalizes agent identifiers that have short and long forms.
//
//nolint:gochecknoglobals // Static alias table, read-only.
var agentAliases = map[string]string{
	"chief_executive_officer":  "ceo",
	"chief_executive":          "ceo",
	"chief_technology_officer": "cto",
	"chief_technology":         "cto",
	"chief_financial_officer":  "cfo",
	"chief_financial":          "cfo",
	"chairman":                 "chair",
	"chairperson":              "chair",
	"board_chair":              "chair",
}

// CanonicalAgentID maps an agent identifier through the alias table. Unknown
// identifiers pass through lowercased and trimmed.
func CanonicalAgentID(agentID string) string {
	id := strings.ToLower(strings.TrimSpace(agentID))
	if canonical, ok := agentAliases[id]; ok {
		return canonical
	}
	return id
}
