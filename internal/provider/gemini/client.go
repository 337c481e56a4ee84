// Package gemini implements the model backend for Google Gemini. It performs
// blocking completions only; the agent falls back from streaming
// automatically.
package gemini

import (
	"context"

	"google.golang.org/genai"
)

// GeminiClient defines the interface for interacting with the Gemini API.
// This abstraction allows for easier testing and potential future
// implementations.
type GeminiClient interface {
	// GenerateContent sends a request to the Gemini API and returns the response
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// RealGeminiClient wraps the official SDK client to satisfy GeminiClient.
type RealGeminiClient struct {
	client *genai.Client
}

// NewRealGeminiClient creates a new RealGeminiClient from an SDK client.
func NewRealGeminiClient(client *genai.Client) *RealGeminiClient {
	return &RealGeminiClient{client: client}
}

// GenerateContent calls the SDK's GenerateContent method.
func (c *RealGeminiClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return c.client.Models.GenerateContent(ctx, model, contents, config)
}
