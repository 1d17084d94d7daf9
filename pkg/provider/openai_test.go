package provider

import (
	"context"
	"net/http"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardroom/pkg/config"
	"boardroom/pkg/provider/generr"
	"boardroom/pkg/testkit"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Credentials.Default = "test-key"
	return cfg
}

func newTestGenerator(t *testing.T, mock *testkit.MockOpenAI) *OpenAIGenerator {
	t.Helper()
	srv := mock.Server()
	t.Cleanup(srv.Close)
	return NewOpenAIGenerator(testConfig(), option.WithBaseURL(srv.URL+"/v1/"))
}

func TestOpenAIGeneratorSuccess(t *testing.T) {
	mock := testkit.NewMockOpenAI(testkit.RespondJSON(`{"stance": "supportive", "verdict": "fine"}`))
	gen := newTestGenerator(t, mock)

	result, err := gen.GenerateJSONWithUsage(context.Background(), Request{
		System:      "You are the CEO.",
		Prompt:      "Review this idea.",
		Temperature: 0.3,
		MaxTokens:   4096,
		Meta:        Meta{AgentID: "ceo"},
	})
	require.NoError(t, err)

	assert.Equal(t, "supportive", result.Data["stance"])
	assert.Equal(t, int64(50), result.Usage.PromptTokens)
	assert.Equal(t, int64(100), result.Usage.CompletionTokens)
	assert.Equal(t, int64(150), result.Usage.TotalTokens)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "json_schema", reqs[0].ResponseFormatType)
	assert.True(t, reqs[0].HasParam("temperature"))
}

func TestOpenAIGeneratorSchemaHintInSystem(t *testing.T) {
	mock := testkit.NewMockOpenAI(testkit.RespondJSON(`{"ok": true}`))
	gen := newTestGenerator(t, mock)

	_, err := gen.GenerateJSON(context.Background(), Request{
		System: "You are the CEO.",
		Prompt: "Review this idea.",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"ok": map[string]any{"type": "boolean"}},
		},
		Meta: Meta{AgentID: "ceo"},
	})
	require.NoError(t, err)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].System, "You are the CEO.")
	assert.Contains(t, reqs[0].System, "Respond with a single JSON object")
	assert.Contains(t, reqs[0].System, `"boolean"`)
}

func TestOpenAIGeneratorTemperatureCompatRetry(t *testing.T) {
	mock := testkit.NewMockOpenAI(
		testkit.RespondUnsupportedParam("temperature"),
		testkit.RespondJSON(`{"ok": true}`),
	)
	gen := newTestGenerator(t, mock)

	data, err := gen.GenerateJSON(context.Background(), Request{
		Prompt:      "hi",
		Temperature: 0.7,
		Meta:        Meta{AgentID: "ceo"},
	})
	require.NoError(t, err)
	assert.Equal(t, true, data["ok"])

	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	assert.True(t, reqs[0].HasParam("temperature"))
	assert.False(t, reqs[1].HasParam("temperature"), "retry must omit the rejected parameter")
}

func TestOpenAIGeneratorCompatRetryOncePerParam(t *testing.T) {
	mock := testkit.NewMockOpenAI(testkit.RespondUnsupportedParam("temperature"))
	gen := newTestGenerator(t, mock)

	_, err := gen.GenerateJSON(context.Background(), Request{
		Prompt:      "hi",
		Temperature: 0.7,
		Meta:        Meta{AgentID: "ceo"},
	})
	require.Error(t, err)
	assert.True(t, generr.Is(err, generr.ErrorTypeBadRequest))

	assert.Len(t, mock.Requests(), 2, "exactly one substitution per parameter per call")
}

func TestOpenAIGeneratorMaxTokensRename(t *testing.T) {
	mock := testkit.NewMockOpenAI(
		testkit.RespondUnsupportedParam("max_tokens"),
		testkit.RespondJSON(`{"ok": true}`),
	)
	gen := newTestGenerator(t, mock)

	_, err := gen.GenerateJSON(context.Background(), Request{
		Prompt:    "hi",
		MaxTokens: 2048,
		Meta:      Meta{AgentID: "ceo"},
	})
	require.NoError(t, err)

	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	assert.True(t, reqs[0].HasParam("max_tokens"))
	assert.False(t, reqs[1].HasParam("max_tokens"))
	assert.True(t, reqs[1].HasParam("max_completion_tokens"), "token budget moves to the sibling parameter")
	assert.Equal(t, int64(2048), reqs[1].TokenBudget(), "budget value survives the rename")
}

func TestOpenAIGeneratorTruncationEscalation(t *testing.T) {
	mock := testkit.NewMockOpenAI(
		testkit.RespondTruncated(),
		testkit.RespondTruncated(),
		testkit.RespondJSON(`{"ok": true}`),
	)
	gen := newTestGenerator(t, mock)

	data, err := gen.GenerateJSON(context.Background(), Request{
		Prompt:    "hi",
		MaxTokens: 1000,
		Meta:      Meta{AgentID: "ceo"},
	})
	require.NoError(t, err)
	assert.Equal(t, true, data["ok"])

	reqs := mock.Requests()
	require.Len(t, reqs, 3)
	budgets := []int64{reqs[0].TokenBudget(), reqs[1].TokenBudget(), reqs[2].TokenBudget()}
	assert.Equal(t, []int64{1000, 2000, 4000}, budgets, "budgets escalate strictly")
}

func TestOpenAIGeneratorTruncationCeiling(t *testing.T) {
	mock := testkit.NewMockOpenAI(testkit.RespondTruncated())
	gen := newTestGenerator(t, mock)

	_, err := gen.GenerateJSON(context.Background(), Request{
		Prompt:    "hi",
		MaxTokens: 16384,
		Meta:      Meta{AgentID: "ceo", Model: "gpt-5"},
	})
	require.Error(t, err)
	assert.True(t, generr.Is(err, generr.ErrorTypeTruncated))

	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, int64(16384), reqs[0].TokenBudget())
	assert.Equal(t, int64(32768), reqs[1].TokenBudget(), "escalation stops at the hard ceiling")
}

func TestOpenAIGeneratorSchemaModeFallback(t *testing.T) {
	rejectSchema := func(testkit.RecordedRequest) (int, map[string]any) {
		return http.StatusBadRequest, testkit.ErrorBody(
			"response_format of type json_schema is not supported with this model.",
			"invalid_request_error", "response_format",
		)
	}
	mock := testkit.NewMockOpenAI(rejectSchema, testkit.RespondJSON(`{"ok": true}`))
	gen := newTestGenerator(t, mock)

	_, err := gen.GenerateJSON(context.Background(), Request{
		Prompt: "hi",
		Schema: map[string]any{"type": "object"},
		Meta:   Meta{AgentID: "ceo"},
	})
	require.NoError(t, err)

	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "json_schema", reqs[0].ResponseFormatType)
	assert.Equal(t, "json_object", reqs[1].ResponseFormatType)
}

func TestOpenAIGeneratorSchemaModeFallbackOnce(t *testing.T) {
	rejectSchema := func(testkit.RecordedRequest) (int, map[string]any) {
		return http.StatusBadRequest, testkit.ErrorBody(
			"response_format of type json_schema is not supported with this model.",
			"invalid_request_error", "response_format",
		)
	}
	mock := testkit.NewMockOpenAI(rejectSchema)
	gen := newTestGenerator(t, mock)

	_, err := gen.GenerateJSON(context.Background(), Request{
		Prompt: "hi",
		Meta:   Meta{AgentID: "ceo"},
	})
	require.Error(t, err)
	assert.True(t, generr.Is(err, generr.ErrorTypeBadRequest))
	assert.Len(t, mock.Requests(), 2)
}

func TestOpenAIGeneratorServerErrorIsTransient(t *testing.T) {
	serverError := func(testkit.RecordedRequest) (int, map[string]any) {
		return http.StatusInternalServerError, testkit.ErrorBody("upstream exploded", "server_error", "")
	}
	mock := testkit.NewMockOpenAI(serverError)
	gen := newTestGenerator(t, mock)

	_, err := gen.GenerateJSON(context.Background(), Request{
		Prompt: "hi",
		Meta:   Meta{AgentID: "ceo"},
	})
	require.Error(t, err)
	assert.True(t, generr.Is(err, generr.ErrorTypeTransient))
	assert.Len(t, mock.Requests(), 1, "5xx responses are not retried here")
}

func TestOpenAIGeneratorMissingCredential(t *testing.T) {
	t.Setenv(config.EnvOpenAIAPIKey, "")

	mock := testkit.NewMockOpenAI(testkit.RespondJSON(`{"ok": true}`))
	srv := mock.Server()
	t.Cleanup(srv.Close)

	cfg := config.Default() // no credentials at all
	gen := NewOpenAIGenerator(cfg, option.WithBaseURL(srv.URL+"/v1/"))

	_, err := gen.GenerateJSON(context.Background(), Request{
		Prompt: "hi",
		Meta:   Meta{AgentID: "ceo"},
	})
	require.Error(t, err)
	assert.True(t, generr.Is(err, generr.ErrorTypeConfig))
	assert.Empty(t, mock.Requests(), "credential failure must precede any network call")
}

func TestOpenAIGeneratorClampsParameters(t *testing.T) {
	mock := testkit.NewMockOpenAI(testkit.RespondJSON(`{"ok": true}`))
	gen := newTestGenerator(t, mock)

	_, err := gen.GenerateJSON(context.Background(), Request{
		Prompt:      "hi",
		Temperature: 9.5,
		MaxTokens:   999999,
		Meta:        Meta{AgentID: "ceo", Model: "gpt-4o-mini"},
	})
	require.NoError(t, err)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	require.NotNil(t, reqs[0].Temperature)
	assert.Equal(t, 2.0, *reqs[0].Temperature)
	assert.Equal(t, int64(16384), reqs[0].TokenBudget(), "budget capped by the model registry")
}

func TestOpenAIGeneratorParseFailure(t *testing.T) {
	mock := testkit.NewMockOpenAI(testkit.RespondJSON(`not json at all`))
	gen := newTestGenerator(t, mock)

	_, err := gen.GenerateJSON(context.Background(), Request{
		Prompt: "hi",
		Meta:   Meta{AgentID: "ceo"},
	})
	require.Error(t, err)
	assert.True(t, generr.Is(err, generr.ErrorTypeParse))
}
