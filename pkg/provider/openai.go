package provider

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"boardroom/pkg/config"
	"boardroom/pkg/logx"
	"boardroom/pkg/metrics"
	"boardroom/pkg/provider/generr"
)

// Generation limits. Requested values are clamped into these ranges before
// the request is sent, so out-of-range inputs never trip backend validation.
const (
	temperatureMin = 0.0
	temperatureMax = 2.0

	tokenFloor       = 64
	tokenCeiling     = 32768
	defaultMaxTokens = 4096

	requestTimeout = 120 * time.Second
	errPreviewLen  = 240

	// Safety bound on the request loop. Compat substitutions, the schema-mode
	// downgrade, and budget doublings are each individually bounded; this cap
	// backstops all of them combined.
	maxCallAttempts = 16
)

// unsupportedParamRe extracts the offending parameter name from a 400-class
// "Unsupported parameter" rejection.
var unsupportedParamRe = regexp.MustCompile(`[Uu]nsupported (?:parameter|value)[:\s]+'([A-Za-z_.]+)'`)

// tokenParamAliases maps each token-limit parameter name to its sibling form.
// Some backends accept only one of the pair; a rejection of one is retried
// once with the other.
//
//nolint:gochecknoglobals // Static alias table, read-only.
var tokenParamAliases = map[string]string{
	"max_tokens":            "max_completion_tokens",
	"max_completion_tokens": "max_tokens",
}

// OpenAIGenerator is the live Generator implementation over the OpenAI chat
// completions protocol.
type OpenAIGenerator struct {
	cfg       *config.Config
	model     string
	logger    *logx.Logger
	extraOpts []option.RequestOption
}

// NewOpenAIGenerator creates a live generator. Extra request options are
// appended to every call; tests use them to point at a mock server.
func NewOpenAIGenerator(cfg *config.Config, opts ...option.RequestOption) *OpenAIGenerator {
	model := cfg.Model
	if model == "" {
		model = config.ModelGPT4oMini
	}
	return &OpenAIGenerator{
		cfg:       cfg,
		model:     model,
		logger:    logx.NewLogger("provider-openai"),
		extraOpts: opts,
	}
}

// GenerateJSON implements Generator.
func (g *OpenAIGenerator) GenerateJSON(ctx context.Context, req Request) (map[string]any, error) {
	result, err := g.GenerateJSONWithUsage(ctx, req)
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// GenerateJSONWithUsage implements Generator.
func (g *OpenAIGenerator) GenerateJSONWithUsage(ctx context.Context, req Request) (Result, error) {
	result, err := g.generate(ctx, req)
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("openai", "error").Inc()
		return Result{}, err
	}
	metrics.GenerationsTotal.WithLabelValues("openai", "ok").Inc()
	return result, nil
}

func (g *OpenAIGenerator) generate(ctx context.Context, req Request) (Result, error) {
	canonical := CanonicalAgentID(req.Meta.AgentID)

	// Credential resolution is a fatal configuration step; it runs before any
	// network call.
	apiKey, err := g.cfg.ResolveAPIKey(canonical)
	if err != nil {
		return Result{}, generr.NewWithCause(generr.ErrorTypeConfig, err, "credential resolution failed")
	}

	model := req.Meta.Model
	if model == "" {
		model = g.model
	}

	opts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, g.extraOpts...)
	client := openai.NewClient(opts...)

	params := g.buildParams(req, model)
	budget := clampTokens(req.MaxTokens, model)

	// One substitution per offending parameter name per call chain.
	substituted := map[string]bool{}
	schemaMode := true

	var lastText, lastFinish string

	for attempt := 0; attempt < maxCallAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		resp, err := client.Chat.Completions.New(callCtx, params)
		cancel()

		if err != nil {
			retry, classified := g.handleCallError(err, &params, substituted, &schemaMode)
			if retry {
				continue
			}
			return Result{}, classified
		}

		if len(resp.Choices) == 0 {
			return Result{}, generr.New(generr.ErrorTypeParse, "response carried no choices")
		}

		choice := resp.Choices[0]
		lastText = ContentText(choice.Message.Content)
		lastFinish = string(choice.FinishReason)

		truncated := lastFinish == "length"
		if truncated && lastText == "" && budget < tokenCeiling {
			budget = escalateBudget(budget)
			setTokenBudget(&params, budget)
			metrics.TruncationRetriesTotal.Inc()
			g.logger.Debug("empty truncated response for %s, escalating budget to %d", canonical, budget)
			continue
		}

		data, parseErr := ParseJSONObject(lastText)
		if parseErr != nil {
			if truncated && budget < tokenCeiling {
				budget = escalateBudget(budget)
				setTokenBudget(&params, budget)
				metrics.TruncationRetriesTotal.Inc()
				continue
			}
			if truncated {
				return Result{}, generr.NewTruncated(lastFinish, lastText, errPreviewLen)
			}
			return Result{}, parseErr
		}

		return Result{
			Data: data,
			Usage: Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
		}, nil
	}

	if lastFinish == "length" {
		return Result{}, generr.NewTruncated(lastFinish, lastText, errPreviewLen)
	}
	return Result{}, generr.Newf(generr.ErrorTypeUnknown, "generation did not converge after %d attempts", maxCallAttempts)
}

// buildParams assembles the two-message chat request: system instructions
// with a schema hint, then the user prompt, with a strict schema-typed
// response mode preferred.
func (g *OpenAIGenerator) buildParams(req Request, model string) openai.ChatCompletionNewParams {
	system := req.System
	if len(req.Schema) > 0 {
		if hint, err := json.Marshal(req.Schema); err == nil {
			system += "\n\nRespond with a single JSON object conforming to this schema:\n" + string(hint)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(clampTemperature(req.Temperature)),
		MaxTokens:   openai.Int(int64(clampTokens(req.MaxTokens, model))),
	}

	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
			JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   "structured_output",
				Schema: req.Schema,
				Strict: openai.Bool(true),
			},
		},
	}
	return params
}

// handleCallError classifies a failed call and mutates params when a single
// compatibility retry applies. Returns (true, nil) when the call should be
// retried.
func (g *OpenAIGenerator) handleCallError(err error, params *openai.ChatCompletionNewParams, substituted map[string]bool, schemaMode *bool) (bool, error) {
	var apierr *openai.Error
	if !errors.As(err, &apierr) {
		return false, generr.NewWithCause(generr.ErrorTypeTransient, err, "chat completion request failed")
	}

	msg := apierr.Message
	if msg == "" {
		msg = apierr.Error()
	}

	if apierr.StatusCode == 400 {
		if name := offendingParam(msg); name != "" && !substituted[name] {
			substituted[name] = true
			if applySubstitution(params, name) {
				metrics.CompatRetriesTotal.WithLabelValues(name).Inc()
				g.logger.Info("retrying without unsupported parameter %q", name)
				return true, nil
			}
		}
		// Strict schema-typed response mode rejected: fall back once to the
		// unconstrained JSON-object mode.
		if *schemaMode && mentionsResponseFormat(msg) {
			*schemaMode = false
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			}
			g.logger.Info("schema-typed response mode rejected, falling back to json_object")
			return true, nil
		}
		return false, generr.NewWithStatus(generr.ErrorTypeBadRequest, apierr.StatusCode, msg)
	}

	if apierr.StatusCode >= 500 {
		return false, generr.NewWithStatus(generr.ErrorTypeTransient, apierr.StatusCode, msg)
	}
	return false, generr.NewWithStatus(generr.ErrorTypeUnknown, apierr.StatusCode, msg)
}

func offendingParam(msg string) string {
	m := unsupportedParamRe.FindStringSubmatch(msg)
	if len(m) != 2 {
		return ""
	}
	return m[1]
}

// applySubstitution removes or renames the offending parameter. Temperature
// is dropped; each token-limit parameter is renamed to its sibling form.
func applySubstitution(params *openai.ChatCompletionNewParams, name string) bool {
	switch name {
	case "temperature":
		params.Temperature = param.Opt[float64]{}
		return true
	case "max_tokens":
		if params.MaxTokens.Valid() {
			params.MaxCompletionTokens = params.MaxTokens
			params.MaxTokens = param.Opt[int64]{}
		}
		return true
	case "max_completion_tokens":
		if params.MaxCompletionTokens.Valid() {
			params.MaxTokens = params.MaxCompletionTokens
			params.MaxCompletionTokens = param.Opt[int64]{}
		}
		return true
	}
	_, aliasable := tokenParamAliases[name]
	return aliasable
}

func mentionsResponseFormat(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "response_format") || strings.Contains(lower, "json_schema")
}

// setTokenBudget updates whichever token-limit field is currently in use.
func setTokenBudget(params *openai.ChatCompletionNewParams, budget int) {
	if params.MaxCompletionTokens.Valid() {
		params.MaxCompletionTokens = openai.Int(int64(budget))
		return
	}
	params.MaxTokens = openai.Int(int64(budget))
}

// escalateBudget doubles the token budget, capped at the hard ceiling.
// Escalation is monotonic and stops at the ceiling.
func escalateBudget(budget int) int {
	next := budget * 2
	if next > tokenCeiling {
		next = tokenCeiling
	}
	return next
}

func clampTemperature(t float64) float64 {
	if t < temperatureMin {
		return temperatureMin
	}
	if t > temperatureMax {
		return temperatureMax
	}
	return t
}

func clampTokens(n int, model string) int {
	if n <= 0 {
		n = defaultMaxTokens
	}
	if n < tokenFloor {
		n = tokenFloor
	}
	if n > tokenCeiling {
		n = tokenCeiling
	}
	if info, ok := config.KnownModels[model]; ok && info.MaxOutputTokens > 0 && n > info.MaxOutputTokens {
		n = info.MaxOutputTokens
	}
	return n
}
