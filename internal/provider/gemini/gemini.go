package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/WantedChef/chefchat/internal/provider/models"
	"google.golang.org/genai"
)

const backendName = "gemini"

// Backend implements models.Backend for Google Gemini.
type Backend struct {
	client GeminiClient
}

// New creates a Backend using the official SDK client.
func New(ctx context.Context, apiKey string) (*Backend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, mapGeminiError(err)
	}
	return &Backend{client: NewRealGeminiClient(client)}, nil
}

// NewWithClient creates a Backend with a custom client (for testing).
func NewWithClient(client GeminiClient) *Backend {
	return &Backend{client: client}
}

// Name implements models.Backend.
func (b *Backend) Name() string { return backendName }

// Complete performs one blocking generation.
func (b *Backend) Complete(ctx context.Context, req models.CompletionRequest) (*models.Chunk, error) {
	system, contents := toGeminiContents(req.Messages)
	cfg := toGeminiConfig(req, system)

	resp, err := b.client.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, mapGeminiError(err)
	}
	return fromGeminiResponse(resp), nil
}

// CompleteStreaming is not implemented; the agent falls back to Complete.
func (b *Backend) CompleteStreaming(ctx context.Context, req models.CompletionRequest) (models.Stream, error) {
	return nil, models.ErrStreamingNotSupported
}

// mapGeminiError classifies SDK errors into the shared provider taxonomy.
func mapGeminiError(err error) error {
	pe := &models.ProviderError{
		Code:       models.ErrorCodeGeneric,
		Provider:   backendName,
		Endpoint:   "generativelanguage.googleapis.com",
		Message:    err.Error(),
		Underlying: err,
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		pe.Message = apiErr.Message
		pe.Body = models.TruncateBody(apiErr.Message)
		switch {
		case apiErr.Code == 401 || apiErr.Code == 403:
			pe.Code = models.ErrorCodeAuth
		case apiErr.Code == 429:
			pe.Code = models.ErrorCodeRateLimit
		case apiErr.Code == 400 && strings.Contains(strings.ToLower(apiErr.Message), "token"):
			pe.Code = models.ErrorCodeContextTooLong
		case apiErr.Code >= 500:
			pe.Code = models.ErrorCodeConnection
		}
		return pe
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection") || strings.Contains(msg, "dial") || strings.Contains(msg, "timeout") {
		pe.Code = models.ErrorCodeConnection
	}
	return pe
}
