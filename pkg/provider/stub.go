package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"boardroom/pkg/logx"
	"boardroom/pkg/metrics"
	"boardroom/pkg/provider/generr"
	"boardroom/pkg/schema"
)

// StubGenerator is the deterministic, offline Generator implementation. It
// serves canned fixture envelopes keyed by canonical agent id and degrades to
// schema-synthesized stub data when no fixture exists, so a call never fails
// purely for lack of a fixture.
//
// It holds no mutable state beyond read-only fixture files and is safe for
// parallel use.
type StubGenerator struct {
	fixturesDir string
	logger      *logx.Logger
}

// NewStubGenerator creates a stub generator reading fixtures from dir.
func NewStubGenerator(fixturesDir string) *StubGenerator {
	return &StubGenerator{
		fixturesDir: fixturesDir,
		logger:      logx.NewLogger("provider-stub"),
	}
}

// GenerateJSON implements Generator.
func (s *StubGenerator) GenerateJSON(ctx context.Context, req Request) (map[string]any, error) {
	result, err := s.GenerateJSONWithUsage(ctx, req)
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// GenerateJSONWithUsage implements Generator. Usage is always zero-filled:
// the stub performs no token accounting.
func (s *StubGenerator) GenerateJSONWithUsage(_ context.Context, req Request) (Result, error) {
	canonical := CanonicalAgentID(req.Meta.AgentID)

	fixture, err := s.loadFixture(canonical)
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("stub", "error").Inc()
		return Result{}, err
	}
	metrics.GenerationsTotal.WithLabelValues("stub", "ok").Inc()
	if fixture != nil {
		return Result{Data: fixture}, nil
	}

	s.logger.Debug("no fixture for agent %s, synthesizing from schema", canonical)
	return Result{Data: synthesizeObject(req.Schema)}, nil
}

// loadFixture reads and normalizes the fixture envelope for a canonical agent
// id. Returns (nil, nil) when no fixture file exists.
func (s *StubGenerator) loadFixture(canonical string) (map[string]any, error) {
	path := filepath.Join(s.fixturesDir, canonical+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, generr.NewWithCause(generr.ErrorTypeUnknown, err, fmt.Sprintf("failed to read fixture %s", path))
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, generr.NewWithCause(generr.ErrorTypeParse, err, fmt.Sprintf("fixture %s is not valid JSON", path))
	}

	NormalizeVolatile(doc)

	if data, ok := doc["data"].(map[string]any); ok {
		return data, nil
	}
	return doc, nil
}

// synthesizeObject guarantees an object-shaped payload from the synthesizer.
func synthesizeObject(node map[string]any) map[string]any {
	v := schema.Synthesize(node, "")
	if obj, ok := v.(map[string]any); ok {
		return obj
	}
	return map[string]any{"value": v}
}
