package provider

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardroom/pkg/provider/generr"
)

const fixturesDir = "../../testdata/fixtures"

func TestStubGeneratorServesFixture(t *testing.T) {
	gen := NewStubGenerator(fixturesDir)

	data, err := gen.GenerateJSON(context.Background(), Request{
		Meta: Meta{AgentID: "ceo"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Cautiously supportive", data["stance"])
	questions, ok := data["questions"].([]any)
	require.True(t, ok)
	assert.Len(t, questions, 3)
}

func TestStubGeneratorDeterminism(t *testing.T) {
	gen := NewStubGenerator(fixturesDir)
	req := Request{Meta: Meta{AgentID: "chair"}}

	first, err := gen.GenerateJSON(context.Background(), req)
	require.NoError(t, err)
	second, err := gen.GenerateJSON(context.Background(), req)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON), "repeated loads must be byte-identical")
}

func TestStubGeneratorCanonicalizesAlias(t *testing.T) {
	gen := NewStubGenerator(fixturesDir)

	direct, err := gen.GenerateJSON(context.Background(), Request{Meta: Meta{AgentID: "ceo"}})
	require.NoError(t, err)
	aliased, err := gen.GenerateJSON(context.Background(), Request{Meta: Meta{AgentID: "chief_executive_officer"}})
	require.NoError(t, err)

	assert.Equal(t, direct, aliased)
}

func TestStubGeneratorNormalizesVolatileFields(t *testing.T) {
	dir := t.TempDir()
	fixture := map[string]any{
		"data": map[string]any{
			"verdict":           "ok",
			"generated_at":      "2025-03-01T12:00:00Z",
			"run_id":            "run-live",
			"parse_duration_ms": 840,
		},
	}
	raw, err := json.Marshal(fixture)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ceo.json"), raw, 0o644))

	gen := NewStubGenerator(dir)
	data, err := gen.GenerateJSON(context.Background(), Request{Meta: Meta{AgentID: "ceo"}})
	require.NoError(t, err)

	assert.Equal(t, "1970-01-01T00:00:00Z", data["generated_at"])
	assert.Equal(t, "fixture", data["run_id"])
	assert.Equal(t, float64(0), data["parse_duration_ms"])
	assert.Equal(t, "ok", data["verdict"])
}

func TestStubGeneratorSynthesizesWhenFixtureMissing(t *testing.T) {
	gen := NewStubGenerator(t.TempDir())

	data, err := gen.GenerateJSON(context.Background(), Request{
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"stance":  map[string]any{"type": "string"},
				"verdict": map[string]any{"type": "string"},
			},
			"required": []any{"stance", "verdict"},
		},
		Meta: Meta{AgentID: "analyst"},
	})
	require.NoError(t, err)

	assert.Equal(t, "stub value", data["stance"])
	assert.Equal(t, "stub value", data["verdict"])
}

func TestStubGeneratorNonObjectSchemaWrapped(t *testing.T) {
	gen := NewStubGenerator(t.TempDir())

	data, err := gen.GenerateJSON(context.Background(), Request{
		Schema: map[string]any{"type": "string"},
		Meta:   Meta{AgentID: "analyst"},
	})
	require.NoError(t, err)
	assert.Equal(t, "stub value", data["value"])
}

func TestStubGeneratorCorruptFixture(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ceo.json"), []byte("{not json"), 0o644))

	gen := NewStubGenerator(dir)
	_, err := gen.GenerateJSON(context.Background(), Request{Meta: Meta{AgentID: "ceo"}})
	require.Error(t, err)
	assert.True(t, generr.Is(err, generr.ErrorTypeParse))
}

func TestStubGeneratorZeroUsage(t *testing.T) {
	gen := NewStubGenerator(fixturesDir)

	result, err := gen.GenerateJSONWithUsage(context.Background(), Request{Meta: Meta{AgentID: "cfo"}})
	require.NoError(t, err)
	assert.Equal(t, Usage{}, result.Usage)
	assert.NotEmpty(t, result.Data)
}
