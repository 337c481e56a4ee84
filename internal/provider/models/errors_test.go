package models

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderError(t *testing.T) {
	underlying := errors.New("boom")
	pe := &ProviderError{
		Code:       ErrorCodeRateLimit,
		Provider:   "openai-compatible",
		Endpoint:   "https://api.example.com/v1",
		Message:    "too many requests",
		Body:       `{"error": "slow down"}`,
		Underlying: underlying,
	}

	msg := pe.Error()
	assert.Contains(t, msg, "rate_limit")
	assert.Contains(t, msg, "openai-compatible")
	assert.Contains(t, msg, "too many requests")
	assert.Contains(t, msg, "slow down")

	assert.ErrorIs(t, fmt.Errorf("query: %w", pe), underlying)
}

func TestTruncateBody(t *testing.T) {
	short := "all fine"
	assert.Equal(t, short, TruncateBody(short))

	long := strings.Repeat("x", maxDiagnosticBody+100)
	got := TruncateBody(long)
	assert.Len(t, got, maxDiagnosticBody+len("…(truncated)"))
	assert.True(t, strings.HasSuffix(got, "(truncated)"))
}

func TestIsContextTooLong(t *testing.T) {
	tooLong := &ProviderError{Code: ErrorCodeContextTooLong}
	assert.True(t, IsContextTooLong(tooLong))
	assert.True(t, IsContextTooLong(fmt.Errorf("query: %w", tooLong)))
	assert.False(t, IsContextTooLong(&ProviderError{Code: ErrorCodeRateLimit}))
	assert.False(t, IsContextTooLong(errors.New("plain")))
	assert.False(t, IsContextTooLong(nil))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrorCodeAuth, CodeOf(&ProviderError{Code: ErrorCodeAuth}))
	assert.Equal(t, ErrorCodeConnection, CodeOf(fmt.Errorf("wrapped: %w", &ProviderError{Code: ErrorCodeConnection})))
	assert.Equal(t, ErrorCodeGeneric, CodeOf(errors.New("plain")))
}

func TestUsageTotalTokens(t *testing.T) {
	u := Usage{PromptTokens: 100, CompletionTokens: 25}
	assert.Equal(t, 125, u.TotalTokens())
}
