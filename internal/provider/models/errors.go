package models

import (
	"errors"
	"fmt"
)

// ErrStreamingNotSupported is returned by backends that only implement
// blocking completion; callers fall back to Complete.
var ErrStreamingNotSupported = errors.New("streaming not supported")

// ErrorCode classifies a provider failure.
type ErrorCode string

const (
	ErrorCodeAuth           ErrorCode = "authentication_failed"
	ErrorCodeRateLimit      ErrorCode = "rate_limit"
	ErrorCodeContextTooLong ErrorCode = "context_too_long"
	ErrorCodeConnection     ErrorCode = "connection_error"
	ErrorCodeGeneric        ErrorCode = "provider_error"
)

// ProviderError wraps backend failures with enough context to diagnose them.
// Body holds a truncated diagnostic of the provider response.
type ProviderError struct {
	Code       ErrorCode
	Provider   string
	Endpoint   string
	Message    string
	Body       string
	Underlying error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s [%s %s]: %s", e.Code, e.Provider, e.Endpoint, e.Message)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

const maxDiagnosticBody = 512

// TruncateBody bounds a diagnostic body so raw provider responses never bloat
// error messages or session logs.
func TruncateBody(body string) string {
	if len(body) <= maxDiagnosticBody {
		return body
	}
	return body[:maxDiagnosticBody] + "…(truncated)"
}

// IsContextTooLong reports whether err is classified as a context-window
// overflow. Such errors must never be retried verbatim.
func IsContextTooLong(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Code == ErrorCodeContextTooLong
}

// CodeOf returns the classification of err, or ErrorCodeGeneric for
// unclassified errors.
func CodeOf(err error) ErrorCode {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrorCodeGeneric
}
