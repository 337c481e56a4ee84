package gemini

import (
	"encoding/json"
	"fmt"

	"github.com/WantedChef/chefchat/internal/provider/models"
	"google.golang.org/genai"
)

// toGeminiContents converts the conversation to Gemini Content format. The
// leading system message is pulled out separately (Gemini takes it as a
// system instruction, not a turn).
func toGeminiContents(msgs []models.Message) (system *genai.Content, contents []*genai.Content) {
	contents = make([]*genai.Content, 0, len(msgs))
	for i, msg := range msgs {
		if i == 0 && msg.Role == models.RoleSystem {
			system = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(msg.Content)}}
			continue
		}
		content := messageToGeminiContent(msg, msgs)
		if content != nil {
			contents = append(contents, content)
		}
	}
	return system, contents
}

// messageToGeminiContent converts a single message. Tool-result messages need
// the originating function name, which Gemini requires but the tool message
// only carries as a call id; it is resolved from the conversation.
func messageToGeminiContent(msg models.Message, history []models.Message) *genai.Content {
	role := "user"
	if msg.Role == models.RoleAssistant {
		role = "model"
	}

	parts := make([]*genai.Part, 0)

	if msg.Role == models.RoleTool {
		parts = append(parts, &genai.Part{
			FunctionResponse: &genai.FunctionResponse{
				Name: toolNameForCallID(history, msg.ToolCallID),
				Response: map[string]any{
					"content": msg.Content,
				},
			},
		})
		return &genai.Content{Role: "user", Parts: parts}
	}

	if msg.Content != "" {
		parts = append(parts, genai.NewPartFromText(msg.Content))
	}

	for _, tc := range msg.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
			args = map[string]any{"raw": tc.Arguments}
		}
		parts = append(parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				Name: tc.Name,
				Args: args,
			},
		})
	}

	if len(parts) == 0 {
		return nil
	}
	return &genai.Content{Role: role, Parts: parts}
}

// toolNameForCallID finds the tool name for a given tool call id.
func toolNameForCallID(history []models.Message, callID string) string {
	for _, msg := range history {
		if msg.Role != models.RoleAssistant {
			continue
		}
		for _, tc := range msg.ToolCalls {
			if tc.ID == callID {
				return tc.Name
			}
		}
	}
	return "unknown"
}

// toGeminiConfig converts request parameters to Gemini config.
func toGeminiConfig(req models.CompletionRequest, system *genai.Content) *genai.GenerateContentConfig {
	temp := req.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:       &temp,
		SystemInstruction: system,
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		cfg.Tools = toGeminiTools(req.Tools)
	}
	return cfg
}

// toGeminiTools converts tool definitions to Gemini tools.
func toGeminiTools(tools []models.ToolDefinition) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  toGeminiSchema(t.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// toGeminiSchema converts a JSON-schema map into the SDK's Schema type.
// Only the subset the builtin tools use (object/string/integer/boolean/array,
// enum, required) is mapped.
func toGeminiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	out := &genai.Schema{}
	if typ, ok := schema["type"].(string); ok {
		out.Type = toGeminiType(typ)
	}
	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				out.Properties[name] = toGeminiSchema(sub)
			}
		}
	}
	if req, ok := schema["required"].([]string); ok {
		out.Required = req
	} else if raw, ok := schema["required"].([]any); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = toGeminiSchema(items)
	}
	if raw, ok := schema["enum"].([]any); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				out.Enum = append(out.Enum, s)
			}
		}
	} else if vals, ok := schema["enum"].([]string); ok {
		out.Enum = vals
	}
	return out
}

func toGeminiType(typ string) genai.Type {
	switch typ {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

// fromGeminiResponse converts the SDK response into one finalized chunk.
// Gemini function calls carry no wire ids, so synthetic ids are assigned in
// declaration order for tool-result correlation.
func fromGeminiResponse(resp *genai.GenerateContentResponse) *models.Chunk {
	chunk := &models.Chunk{Message: models.Message{Role: models.RoleAssistant}}

	if resp.UsageMetadata != nil {
		chunk.Usage = &models.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	if len(resp.Candidates) == 0 {
		chunk.FinishReason = "stop"
		return chunk
	}

	cand := resp.Candidates[0]
	if cand.FinishReason != "" {
		chunk.FinishReason = string(cand.FinishReason)
	} else {
		chunk.FinishReason = "stop"
	}

	if cand.Content == nil {
		return chunk
	}

	callN := 0
	for _, part := range cand.Content.Parts {
		if part.Text != "" {
			chunk.Message.Content += part.Text
		}
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				args = []byte("{}")
			}
			chunk.Message.ToolCalls = append(chunk.Message.ToolCalls, models.ToolCall{
				ID:        fmt.Sprintf("call_%d", callN),
				Name:      part.FunctionCall.Name,
				Arguments: string(args),
			})
			callN++
		}
	}
	return chunk
}
