package council

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardroom/pkg/provider"
	"boardroom/pkg/review"
)

// fakeGenerator records requests and fails for the agent ids in failFor.
type fakeGenerator struct {
	failFor  map[string]bool
	requests []provider.Request
}

func (f *fakeGenerator) GenerateJSON(ctx context.Context, req provider.Request) (map[string]any, error) {
	result, err := f.GenerateJSONWithUsage(ctx, req)
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (f *fakeGenerator) GenerateJSONWithUsage(_ context.Context, req provider.Request) (provider.Result, error) {
	f.requests = append(f.requests, req)
	if f.failFor[req.Meta.AgentID] {
		return provider.Result{}, errors.New("generation refused")
	}
	return provider.Result{Data: map[string]any{"verdict": "ok from " + req.Meta.AgentID}}, nil
}

func TestRolePanelGeneratesEveryRole(t *testing.T) {
	gen := &fakeGenerator{}
	panel := NewRolePanel(gen)

	result, err := panel.Run(context.Background(), PlanInput{
		Goal:   GoalPanelReview,
		Inputs: map[string]any{"idea": "test idea"},
		Budget: Budget{MaxWords: 400},
	})
	require.NoError(t, err)

	require.Len(t, gen.requests, 4)
	for i, role := range review.ReviewOrder() {
		req := gen.requests[i]
		assert.Equal(t, string(role), req.Meta.AgentID)
		assert.NotEmpty(t, req.System)
		assert.NotEmpty(t, req.Schema)
		assert.Contains(t, req.Prompt, "test idea")
		assert.Contains(t, req.Prompt, "400 words")
	}

	for _, role := range review.ReviewOrder() {
		data, ok := result.Data.Final[string(role)].(map[string]any)
		require.True(t, ok, "role %s missing from final", role)
		assert.Equal(t, "ok from "+string(role), data["verdict"])
	}
}

func TestRolePanelUnknownGoal(t *testing.T) {
	panel := NewRolePanel(&fakeGenerator{})

	_, err := panel.Run(context.Background(), PlanInput{Goal: "make_coffee"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "make_coffee")
}

func TestRolePanelDegradesFailedRole(t *testing.T) {
	gen := &fakeGenerator{failFor: map[string]bool{"cto": true}}
	panel := NewRolePanel(gen)

	result, err := panel.Run(context.Background(), PlanInput{
		Goal:   GoalPanelReview,
		Inputs: map[string]any{"idea": "x"},
	})
	require.NoError(t, err, "a single role failure never fails the run")

	assert.Equal(t, map[string]any{}, result.Data.Final["cto"], "failed role degrades to an empty payload")

	ceo, ok := result.Data.Final["ceo"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, ceo)
}

func TestRolePanelCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	panel := NewRolePanel(&fakeGenerator{})
	_, err := panel.Run(ctx, PlanInput{Goal: GoalPanelReview, Inputs: map[string]any{}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
