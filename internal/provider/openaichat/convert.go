package openaichat

import (
	"encoding/json"

	"github.com/WantedChef/chefchat/internal/provider/models"
	openai "github.com/sashabaranov/go-openai"
)

// toOpenAIMessages converts conversation messages to the SDK shape.
func toOpenAIMessages(msgs []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCalls:  toOpenAIToolCalls(m.ToolCalls),
			ToolCallID: m.ToolCallID,
		})
	}
	return out
}

func toOpenAIToolCalls(calls []models.ToolCall) []openai.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]openai.ToolCall, 0, len(calls))
	for _, tc := range calls {
		out = append(out, openai.ToolCall{
			ID:   tc.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	return out
}

// toOpenAITools converts tool definitions to the SDK shape. Parameter schemas
// pass through as raw JSON.
func toOpenAITools(tools []models.ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		params, _ := json.Marshal(t.Parameters)
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  json.RawMessage(params),
			},
		})
	}
	return out
}

// fromResponse converts a blocking completion response into one finalized
// chunk.
func fromResponse(resp openai.ChatCompletionResponse) *models.Chunk {
	chunk := &models.Chunk{
		Usage: &models.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}
	if len(resp.Choices) == 0 {
		chunk.Message = models.Message{Role: models.RoleAssistant}
		return chunk
	}
	choice := resp.Choices[0]
	chunk.FinishReason = string(choice.FinishReason)
	chunk.Message = models.Message{
		Role:      models.RoleAssistant,
		Content:   choice.Message.Content,
		ToolCalls: fromOpenAIToolCalls(choice.Message.ToolCalls),
	}
	return chunk
}

// fromStreamResponse converts one streamed SSE fragment. The Index pointer on
// tool-call deltas is preserved as-is: the accumulator treats a nil index as a
// malformed stream.
func fromStreamResponse(resp openai.ChatCompletionStreamResponse) *models.Chunk {
	chunk := &models.Chunk{}
	if resp.Usage != nil {
		chunk.Usage = &models.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		}
	}
	if len(resp.Choices) == 0 {
		return chunk
	}
	choice := resp.Choices[0]
	chunk.FinishReason = string(choice.FinishReason)
	chunk.Message = models.Message{
		Role:      models.RoleAssistant,
		Content:   choice.Delta.Content,
		ToolCalls: fromOpenAIToolCalls(choice.Delta.ToolCalls),
	}
	return chunk
}

func fromOpenAIToolCalls(calls []openai.ToolCall) []models.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]models.ToolCall, 0, len(calls))
	for _, tc := range calls {
		out = append(out, models.ToolCall{
			Index:     tc.Index,
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}
