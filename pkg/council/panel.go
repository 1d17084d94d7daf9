package council

import (
	"context"
	"encoding/json"
	"fmt"

	"boardroom/pkg/logx"
	"boardroom/pkg/provider"
	"boardroom/pkg/review"
)

// Generation defaults for panel roles.
const (
	panelTemperature = 0.3
	panelMaxTokens   = 4096
)

// RolePanel is the built-in PlanExecutor: it resolves the panel_review goal
// by generating each role's payload through the structured-output provider.
// An external goal resolver can be injected in its place; the driver only
// depends on the PlanExecutor contract.
type RolePanel struct {
	generator provider.Generator
	logger    *logx.Logger
}

// NewRolePanel creates a panel executor over the given generator.
func NewRolePanel(g provider.Generator) *RolePanel {
	return &RolePanel{
		generator: g,
		logger:    logx.NewLogger("panel"),
	}
}

// Run implements PlanExecutor. An individual role's generation failure
// degrades that role to an empty payload (the formatter turns it into a
// placeholder); only context cancellation fails the run wholesale.
func (p *RolePanel) Run(ctx context.Context, in PlanInput) (*PlanResult, error) {
	if in.Goal != GoalPanelReview {
		return nil, fmt.Errorf("unknown goal %q", in.Goal)
	}

	prompt, err := renderPrompt(in)
	if err != nil {
		return nil, err
	}

	final := make(map[string]any, len(review.ReviewOrder()))
	for _, role := range review.ReviewOrder() {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("panel run cancelled: %w", ctx.Err())
		}

		spec := roleSpecs[role]
		data, err := p.generator.GenerateJSON(ctx, provider.Request{
			System:      spec.SystemPrompt,
			Prompt:      prompt,
			Schema:      spec.Schema,
			Temperature: panelTemperature,
			MaxTokens:   panelMaxTokens,
			Meta:        provider.Meta{AgentID: string(role)},
		})
		if err != nil {
			p.logger.Warn("generation failed for role %s: %v", role, err)
			final[string(role)] = map[string]any{}
			continue
		}
		final[string(role)] = data
	}

	return &PlanResult{Data: PlanData{Final: final}}, nil
}

func renderPrompt(in PlanInput) (string, error) {
	doc, err := json.MarshalIndent(in.Inputs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render panel inputs: %w", err)
	}
	return fmt.Sprintf(
		"Review the following submission and respond in your role.\nKeep the response under %d words.\n\n%s",
		in.Budget.MaxWords, string(doc),
	), nil
}
