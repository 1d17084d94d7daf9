// Package council orchestrates multi-role review runs: context assembly,
// plan execution, message mapping, and thread status transitions.
package council

import "context"

// GoalPanelReview is the fixed goal name submitted to the plan executor for
// a review run.
const GoalPanelReview = "panel_review"

// Budget bounds a plan execution.
type Budget struct {
	MaxWords int `json:"max_words"`
}

// PlanInput is the structured input handed to the plan executor.
type PlanInput struct {
	Goal   string         `json:"goal"`
	Inputs map[string]any `json:"inputs"`
	Budget Budget         `json:"budget"`
}

// PlanData carries the per-role final payloads of a plan execution.
type PlanData struct {
	Final map[string]any `json:"final"`
}

// PlanResult is the plan executor's return shape.
type PlanResult struct {
	Data PlanData `json:"data"`
}

// PlanExecutor resolves a goal name and structured inputs into per-role
// results. Consumed as an opaque collaborator; it may parallelize internally
// and it may fail wholesale.
type PlanExecutor interface {
	Run(ctx context.Context, in PlanInput) (*PlanResult, error)
}
