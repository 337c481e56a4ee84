package openaichat

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/WantedChef/chefchat/internal/provider/models"
	openai "github.com/sashabaranov/go-openai"
)

const backendName = "openai-compatible"

// Backend implements models.Backend over an OpenAI-compatible endpoint.
type Backend struct {
	client   ChatClient
	endpoint string
}

// New creates a Backend using the official SDK client.
func New(apiKey, baseURL string) *Backend {
	endpoint := baseURL
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}
	return &Backend{client: NewSDKClient(apiKey, baseURL), endpoint: endpoint}
}

// NewWithClient creates a Backend with a custom client (for testing).
func NewWithClient(client ChatClient, endpoint string) *Backend {
	return &Backend{client: client, endpoint: endpoint}
}

// Name implements models.Backend.
func (b *Backend) Name() string { return backendName }

// Complete performs one blocking chat completion.
func (b *Backend) Complete(ctx context.Context, req models.CompletionRequest) (*models.Chunk, error) {
	resp, err := b.client.CreateChatCompletion(ctx, b.buildRequest(req, false))
	if err != nil {
		return nil, b.mapError(err)
	}
	return fromResponse(resp), nil
}

// CompleteStreaming starts a streamed chat completion. Usage reporting on the
// final fragment is requested explicitly; the accumulator treats a stream
// without usage as fatal.
func (b *Backend) CompleteStreaming(ctx context.Context, req models.CompletionRequest) (models.Stream, error) {
	sdkReq := b.buildRequest(req, true)
	sdkReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := b.client.CreateChatCompletionStream(ctx, sdkReq)
	if err != nil {
		return nil, b.mapError(err)
	}
	return &sseStream{backend: b, inner: stream}, nil
}

func (b *Backend) buildRequest(req models.CompletionRequest, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    toOpenAIMessages(req.Messages),
		Tools:       toOpenAITools(req.Tools),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
}

// sseStream adapts the SDK stream to models.Stream.
type sseStream struct {
	backend *Backend
	inner   *openai.ChatCompletionStream
}

func (s *sseStream) Recv() (*models.Chunk, error) {
	resp, err := s.inner.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, s.backend.mapError(err)
	}
	return fromStreamResponse(resp), nil
}

func (s *sseStream) Close() error {
	return s.inner.Close()
}

// mapError classifies SDK errors into the shared provider taxonomy.
func (b *Backend) mapError(err error) error {
	pe := &models.ProviderError{
		Code:       models.ErrorCodeGeneric,
		Provider:   backendName,
		Endpoint:   b.endpoint,
		Message:    "request failed",
		Underlying: err,
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		pe.Message = apiErr.Message
		pe.Body = models.TruncateBody(apiErr.Message)
		switch {
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			pe.Code = models.ErrorCodeAuth
		case apiErr.HTTPStatusCode == 429:
			pe.Code = models.ErrorCodeRateLimit
		case isContextLength(apiErr):
			pe.Code = models.ErrorCodeContextTooLong
		}
		return pe
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		pe.Code = models.ErrorCodeConnection
		pe.Message = reqErr.Error()
		return pe
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		pe.Code = models.ErrorCodeConnection
		pe.Message = netErr.Error()
		return pe
	}

	pe.Message = err.Error()
	return pe
}

func isContextLength(apiErr *openai.APIError) bool {
	if code, ok := apiErr.Code.(string); ok && code == "context_length_exceeded" {
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "context length") || strings.Contains(msg, "maximum context")
}
