// Package openaichat implements the model backend for OpenAI-compatible chat
// completion endpoints, including streamed responses with tool-call deltas.
package openaichat

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// ChatClient defines the interface for interacting with the chat completion
// API. This abstraction allows for easier testing and alternative transports.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error)
}

// NewSDKClient builds the official SDK client for the given key and optional
// base URL (empty means api.openai.com).
func NewSDKClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}
