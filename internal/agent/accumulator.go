package agent

import (
	"sort"
	"strings"

	"github.com/WantedChef/chefchat/internal/provider/models"
)

// accumulator folds streamed response fragments into one assistant message.
// onText receives the full text accumulated so far, re-emitted every
// batchSize content fragments, so each notification supersedes the previous
// one. Tool-call fragments are keyed by their stream index and concatenated.
type accumulator struct {
	batchSize int
	onText    func(string)

	content   strings.Builder
	sinceEmit int

	toolCalls    map[int]*models.ToolCall
	finishReason string
	usage        *models.Usage
}

func newAccumulator(batchSize int, onText func(string)) *accumulator {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &accumulator{
		batchSize: batchSize,
		onText:    onText,
		toolCalls: make(map[int]*models.ToolCall),
	}
}

// Add folds one chunk in. Content-bearing fragments count toward the batch;
// every batchSize of them flushes a text event.
func (a *accumulator) Add(chunk *models.Chunk) error {
	if chunk.Message.Content != "" {
		a.content.WriteString(chunk.Message.Content)
		a.sinceEmit++
		if a.sinceEmit >= a.batchSize {
			a.emitText()
		}
	}

	for _, tc := range chunk.Message.ToolCalls {
		if tc.Index == nil {
			return &MalformedStreamError{Reason: "tool call fragment without index"}
		}
		idx := *tc.Index
		existing, ok := a.toolCalls[idx]
		if !ok {
			existing = &models.ToolCall{}
			a.toolCalls[idx] = existing
		}
		if tc.ID != "" {
			existing.ID = tc.ID
		}
		if tc.Name != "" {
			existing.Name = tc.Name
		}
		existing.Arguments += tc.Arguments
	}

	// First reported finish reason wins.
	if a.finishReason == "" && chunk.FinishReason != "" {
		a.finishReason = chunk.FinishReason
	}
	// The usage report arrives on the final chunk; keep the last one seen.
	if chunk.Usage != nil {
		a.usage = chunk.Usage
	}
	return nil
}

func (a *accumulator) emitText() {
	if a.sinceEmit == 0 {
		return
	}
	if a.onText != nil {
		a.onText(a.content.String())
	}
	a.sinceEmit = 0
}

// Finalize flushes the remaining text and assembles the accumulated message.
// A stream that never reported usage is a protocol violation.
func (a *accumulator) Finalize() (*models.Chunk, error) {
	a.emitText()

	if a.usage == nil {
		return nil, &MalformedStreamError{Reason: "stream ended without a usage report"}
	}

	indexes := make([]int, 0, len(a.toolCalls))
	for idx := range a.toolCalls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for i, idx := range indexes {
		if idx != i {
			return nil, &MalformedStreamError{Reason: "tool call indexes are not contiguous"}
		}
	}

	calls := make([]models.ToolCall, 0, len(indexes))
	for _, idx := range indexes {
		calls = append(calls, *a.toolCalls[idx])
	}

	finishReason := a.finishReason
	if finishReason == "" {
		finishReason = "stop"
	}

	return &models.Chunk{
		Message: models.Message{
			Role:      models.RoleAssistant,
			Content:   a.content.String(),
			ToolCalls: calls,
		},
		Usage:        a.usage,
		FinishReason: finishReason,
	}, nil
}
