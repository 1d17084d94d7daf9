package provider

import "strings"

// QualityChecks carries the per-generation validation flags inside an
// envelope's meta block.
type QualityChecks struct {
	NoFabrication bool `json:"no_fabrication"`
	WithinLimits  bool `json:"within_limits"`
	SchemaValid   bool `json:"schema_valid"`
	DedupeOK      bool `json:"dedupe_ok"`
	GroundingOK   bool `json:"grounding_ok"`
}

// Handoff declares what downstream consumers an output is compatible with.
type Handoff struct {
	Type                  string   `json:"type"`
	Version               string   `json:"version"`
	Entities              []string `json:"entities,omitempty"`
	RecommendedNextAgents []string `json:"recommended_next_agents,omitempty"`
	Compat                []string `json:"compat,omitempty"`
}

// EnvelopeMeta is the traceability metadata attached to every generation.
type EnvelopeMeta struct {
	AgentID       string         `json:"agent_id"`
	GeneratedAt   string         `json:"generated_at"`
	RunID         string         `json:"run_id"`
	TraceID       string         `json:"trace_id"`
	Mode          string         `json:"mode"`
	InputEcho     string         `json:"input_echo,omitempty"`
	QualityChecks QualityChecks  `json:"quality_checks"`
	Limitations   []string       `json:"limitations,omitempty"`
	Assumptions   []string       `json:"assumptions,omitempty"`
	Handoff       Handoff        `json:"handoff"`
	WebStats      map[string]any `json:"web_stats,omitempty"`
}

// Envelope is the {data, meta} wrapper standardizing generation output.
type Envelope struct {
	Data map[string]any `json:"data"`
	Meta EnvelopeMeta   `json:"meta"`
}

// Fixed replacement values used when stripping volatile fields from fixtures.
const (
	fixedEpoch       = "1970-01-01T00:00:00Z"
	fixedPlaceholder = "fixture"
)

// NormalizeVolatile walks a decoded envelope document and replaces fields that
// vary between generations: timestamps become the fixed epoch, run and trace
// identifiers become a fixed placeholder, and duration fields are zeroed.
// Repeated fixture loads are byte-for-byte reproducible after this pass.
func NormalizeVolatile(doc any) any {
	switch node := doc.(type) {
	case map[string]any:
		for key, val := range node {
			lower := strings.ToLower(key)
			switch {
			case lower == "generated_at" || lower == "created_at" || lower == "timestamp":
				node[key] = fixedEpoch
			case lower == "run_id" || lower == "trace_id":
				node[key] = fixedPlaceholder
			case strings.Contains(lower, "duration"):
				node[key] = float64(0)
			default:
				node[key] = NormalizeVolatile(val)
			}
		}
		return node
	case []any:
		for i, val := range node {
			node[i] = NormalizeVolatile(val)
		}
		return node
	default:
		return doc
	}
}
