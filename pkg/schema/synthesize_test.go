package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeScalars(t *testing.T) {
	tests := []struct {
		want    any
		node    map[string]any
		name    string
		keyHint string
	}{
		{
			name: "plain string",
			node: map[string]any{"type": "string"},
			want: "stub value",
		},
		{
			name: "date-time format",
			node: map[string]any{"type": "string", "format": "date-time"},
			want: "1970-01-01T00:00:00Z",
		},
		{
			name:    "email key hint",
			node:    map[string]any{"type": "string"},
			keyHint: "contact_email",
			want:    "stub@example.com",
		},
		{
			name:    "url key hint",
			node:    map[string]any{"type": "string"},
			keyHint: "homepage_url",
			want:    "https://example.com",
		},
		{
			name: "number defaults to zero",
			node: map[string]any{"type": "number"},
			want: float64(0),
		},
		{
			name: "integer uses minimum",
			node: map[string]any{"type": "integer", "minimum": float64(5)},
			want: float64(5),
		},
		{
			name: "boolean",
			node: map[string]any{"type": "boolean"},
			want: false,
		},
		{
			name: "const wins over type",
			node: map[string]any{"type": "string", "const": "fixed"},
			want: "fixed",
		},
		{
			name: "default wins over type",
			node: map[string]any{"type": "integer", "default": float64(42)},
			want: float64(42),
		},
		{
			name: "first enum value",
			node: map[string]any{"type": "string", "enum": []any{"go", "no_go", "verify"}},
			want: "go",
		},
		{
			name: "nullable type array skips null",
			node: map[string]any{"type": []any{"null", "string"}},
			want: "stub value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Synthesize(tt.node, tt.keyHint))
		})
	}
}

func TestSynthesizeObject(t *testing.T) {
	node := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"stance":  map[string]any{"type": "string"},
			"count":   map[string]any{"type": "integer"},
			"details": map[string]any{"type": "object"},
		},
		"required": []any{"stance", "undeclared"},
	}

	v := Synthesize(node, "")
	obj, ok := v.(map[string]any)
	require.True(t, ok)

	assert.Equal(t, "stub value", obj["stance"])
	assert.Equal(t, float64(0), obj["count"])
	assert.Equal(t, map[string]any{}, obj["details"])

	// Required keys without a property declaration still get a value.
	assert.Contains(t, obj, "undeclared")
}

func TestSynthesizeArray(t *testing.T) {
	node := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}

	v := Synthesize(node, "")
	arr, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, arr, 1)
	assert.Equal(t, "stub value", arr[0])
}

func TestSynthesizeComposition(t *testing.T) {
	t.Run("oneOf picks first branch", func(t *testing.T) {
		node := map[string]any{
			"oneOf": []any{
				map[string]any{"type": "string"},
				map[string]any{"type": "integer"},
			},
		}
		assert.Equal(t, "stub value", Synthesize(node, ""))
	})

	t.Run("allOf merges branches", func(t *testing.T) {
		node := map[string]any{
			"allOf": []any{
				map[string]any{"type": "object", "properties": map[string]any{
					"a": map[string]any{"type": "string"},
				}},
				map[string]any{"properties": map[string]any{
					"b": map[string]any{"type": "boolean"},
				}},
			},
		}
		v := Synthesize(node, "")
		obj, ok := v.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "stub value", obj["a"])
	})
}

func TestSynthesizeMalformed(t *testing.T) {
	assert.Equal(t, map[string]any{}, Synthesize(nil, ""))
	assert.Equal(t, map[string]any{}, Synthesize(map[string]any{"type": float64(7)}, ""))
	assert.Equal(t, map[string]any{}, Synthesize(map[string]any{"garbage": true}, ""))
}

func TestSynthesizeMetaStub(t *testing.T) {
	node := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"data": map[string]any{"type": "object"},
			"meta": map[string]any{"type": "object"},
		},
		"required": []any{"data", "meta"},
	}

	v := Synthesize(node, "")
	obj, ok := v.(map[string]any)
	require.True(t, ok)

	meta, ok := obj["meta"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, meta, "meta stub must not be an empty object")
	assert.Equal(t, "1970-01-01T00:00:00Z", meta["generated_at"])
}

func TestSynthesizeEnumIsCloned(t *testing.T) {
	inner := map[string]any{"k": "v"}
	node := map[string]any{"enum": []any{inner}}

	v := Synthesize(node, "")
	got, ok := v.(map[string]any)
	require.True(t, ok)

	got["k"] = "mutated"
	assert.Equal(t, "v", inner["k"], "synthesized value must not alias the schema")
}
