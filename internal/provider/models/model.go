package models

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is one tool invocation requested by the model. During streaming,
// Arguments holds partially-built JSON text that is concatenated fragment by
// fragment; Index correlates fragments belonging to the same call within one
// assistant turn. A nil Index on a streamed fragment is a protocol violation.
type ToolCall struct {
	Index     *int   `json:"index,omitempty"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one entry of the conversation.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Usage carries token counts reported by the backend.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// TotalTokens returns prompt plus completion tokens.
func (u Usage) TotalTokens() int {
	return u.PromptTokens + u.CompletionTokens
}

// Chunk is one unit of model output: the whole response for non-streaming
// completions, or one partial fragment of a streamed response. Usage and
// FinishReason are nil/empty on fragments that don't carry them.
type Chunk struct {
	Message      Message `json:"message"`
	Usage        *Usage  `json:"usage,omitempty"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// ToolDefinition describes a callable tool to the model. Parameters is a JSON
// schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// CompletionRequest is the backend-neutral request shape.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Tools       []ToolDefinition
	Temperature float32
	MaxTokens   int
}
