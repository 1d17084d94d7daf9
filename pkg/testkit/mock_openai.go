// Package testkit provides mock servers and helpers for exercising the live
// generator without network access.
package testkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// RecordedRequest is the decoded view of one chat completions request.
type RecordedRequest struct {
	Model               string
	Temperature         *float64
	MaxTokens           *int64
	MaxCompletionTokens *int64
	ResponseFormatType  string
	System              string
	Prompt              string
}

// HasParam reports whether the named top-level parameter was present.
func (r RecordedRequest) HasParam(name string) bool {
	switch name {
	case "temperature":
		return r.Temperature != nil
	case "max_tokens":
		return r.MaxTokens != nil
	case "max_completion_tokens":
		return r.MaxCompletionTokens != nil
	}
	return false
}

// TokenBudget returns whichever token-limit parameter was sent, or 0.
func (r RecordedRequest) TokenBudget() int64 {
	if r.MaxTokens != nil {
		return *r.MaxTokens
	}
	if r.MaxCompletionTokens != nil {
		return *r.MaxCompletionTokens
	}
	return 0
}

// Responder produces one scripted response for a request.
type Responder func(req RecordedRequest) (status int, body map[string]any)

// MockOpenAI is a scriptable chat completions endpoint. Responders are
// consumed in order; when the script runs out, the last responder repeats.
type MockOpenAI struct {
	mu         sync.Mutex
	requests   []RecordedRequest
	responders []Responder
}

// NewMockOpenAI creates an empty mock.
func NewMockOpenAI(responders ...Responder) *MockOpenAI {
	return &MockOpenAI{responders: responders}
}

// Enqueue appends a scripted responder.
func (m *MockOpenAI) Enqueue(r Responder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responders = append(m.responders, r)
}

// Requests returns a copy of all recorded requests.
func (m *MockOpenAI) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Server starts an httptest server emulating the chat completions endpoint.
func (m *MockOpenAI) Server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		req := decodeRequest(raw)

		m.mu.Lock()
		m.requests = append(m.requests, req)
		idx := len(m.requests) - 1
		if idx >= len(m.responders) {
			idx = len(m.responders) - 1
		}
		responder := m.responders[idx]
		m.mu.Unlock()

		status, body := responder(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func decodeRequest(raw map[string]any) RecordedRequest {
	req := RecordedRequest{}
	if model, ok := raw["model"].(string); ok {
		req.Model = model
	}
	if v, ok := raw["temperature"].(float64); ok {
		req.Temperature = &v
	}
	if v, ok := raw["max_tokens"].(float64); ok {
		n := int64(v)
		req.MaxTokens = &n
	}
	if v, ok := raw["max_completion_tokens"].(float64); ok {
		n := int64(v)
		req.MaxCompletionTokens = &n
	}
	if rf, ok := raw["response_format"].(map[string]any); ok {
		req.ResponseFormatType, _ = rf["type"].(string)
	}
	if messages, ok := raw["messages"].([]any); ok {
		for _, m := range messages {
			msg, ok := m.(map[string]any)
			if !ok {
				continue
			}
			role, _ := msg["role"].(string)
			content, _ := msg["content"].(string)
			switch role {
			case "system":
				req.System = content
			case "user":
				req.Prompt = content
			}
		}
	}
	return req
}

// CompletionBody builds a successful chat completion body.
func CompletionBody(content, finishReason string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-mock",
		"object":  "chat.completion",
		"created": 1699999999,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": finishReason,
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     50,
			"completion_tokens": 100,
			"total_tokens":      150,
		},
	}
}

// ErrorBody builds an API error body.
func ErrorBody(message, errType, param string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    errType,
			"param":   param,
			"code":    nil,
		},
	}
}

// RespondJSON returns a responder producing a successful JSON completion.
func RespondJSON(content string) Responder {
	return func(RecordedRequest) (int, map[string]any) {
		return http.StatusOK, CompletionBody(content, "stop")
	}
}

// RespondTruncated returns a responder producing an empty, length-truncated
// completion.
func RespondTruncated() Responder {
	return func(RecordedRequest) (int, map[string]any) {
		return http.StatusOK, CompletionBody("", "length")
	}
}

// RespondUnsupportedParam returns a responder rejecting the request with a
// 400 naming the given parameter.
func RespondUnsupportedParam(param string) Responder {
	return func(RecordedRequest) (int, map[string]any) {
		return http.StatusBadRequest, ErrorBody(
			"Unsupported parameter: '"+param+"' is not supported with this model.",
			"invalid_request_error", param,
		)
	}
}
