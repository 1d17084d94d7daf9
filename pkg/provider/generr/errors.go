// Package generr provides structured error classification for structured-output generation.
package generr

import (
	"errors"
	"fmt"
)

// ErrorType represents categories of generation errors.
type ErrorType int8

const (
	// ErrorTypeConfig represents a fatal configuration problem (missing credential).
	ErrorTypeConfig ErrorType = iota
	// ErrorTypeBadRequest represents a rejected request (HTTP 400), including
	// unsupported-parameter rejections that get one compatibility retry.
	ErrorTypeBadRequest
	// ErrorTypeTruncated represents output cut off by the token limit after the
	// escalation ceiling was reached.
	ErrorTypeTruncated
	// ErrorTypeParse represents response text that could not be parsed as JSON.
	ErrorTypeParse
	// ErrorTypeTransient represents network-level failures (5xx, timeouts).
	ErrorTypeTransient
	// ErrorTypeUnknown represents unclassified errors.
	ErrorTypeUnknown
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeConfig:
		return "config"
	case ErrorTypeBadRequest:
		return "bad_request"
	case ErrorTypeTruncated:
		return "truncated"
	case ErrorTypeParse:
		return "parse"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Error is a classified generation error.
type Error struct {
	Err        error  // Wrapped underlying error
	Message    string // Human-readable message
	BodyStub   string // Truncated preview of raw response text
	Type       ErrorType
	StatusCode int // HTTP status code if applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("generation error (%s): %s", e.Type.String(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("generation error (%s): %v", e.Type.String(), e.Err)
	}
	return fmt.Sprintf("generation error (%s): status %d", e.Type.String(), e.StatusCode)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks whether err is a classified error of the given type.
func Is(err error, errorType ErrorType) bool {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Type == errorType
	}
	return false
}

// TypeOf returns the error type of err, or ErrorTypeUnknown if unclassified.
func TypeOf(err error) ErrorType {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Type
	}
	return ErrorTypeUnknown
}

// New creates a classified error.
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(errorType ErrorType, format string, args ...any) *Error {
	return &Error{Type: errorType, Message: fmt.Sprintf(format, args...)}
}

// NewWithStatus creates a classified error with an HTTP status.
func NewWithStatus(errorType ErrorType, statusCode int, message string) *Error {
	return &Error{Type: errorType, StatusCode: statusCode, Message: message}
}

// NewWithCause creates a classified error wrapping another error.
func NewWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{Type: errorType, Err: cause, Message: message}
}

// NewTruncated creates a truncation error carrying the finish reason and a
// bounded preview of the raw text, so callers never see silently empty data.
func NewTruncated(finishReason, rawText string, previewLen int) *Error {
	preview := rawText
	if len(preview) > previewLen {
		preview = preview[:previewLen] + "..."
	}
	return &Error{
		Type:     ErrorTypeTruncated,
		Message:  fmt.Sprintf("output truncated (finish_reason=%s) after budget ceiling", finishReason),
		BodyStub: preview,
	}
}
