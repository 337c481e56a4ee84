// Package session tracks per-conversation accounting and persists the
// conversation transcript between runs.
package session

import (
	"time"

	"github.com/WantedChef/chefchat/internal/provider/models"
)

// Stats accumulates usage across a conversation. Counters survive compaction:
// a summarized transcript does not refund spent tokens or turns. Stats is
// owned by the engine and mutated only under its turn lock.
type Stats struct {
	Turns            int     `json:"turns"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	ToolCalls        int     `json:"tool_calls"`
	Compactions      int     `json:"compactions"`
	Price            float64 `json:"price"`

	// ContextTokens is the estimated size of the current transcript; unlike
	// the counters above it shrinks when the transcript is compacted.
	ContextTokens   int     `json:"context_tokens"`
	LastTurnSeconds float64 `json:"last_turn_seconds"`
	TokensPerSecond float64 `json:"tokens_per_second"`
}

// AddUsage folds a usage report into the totals and charges it at the given
// per-million-token prices.
func (s *Stats) AddUsage(u models.Usage, inputPerMillion, outputPerMillion float64) {
	s.PromptTokens += u.PromptTokens
	s.CompletionTokens += u.CompletionTokens
	s.Price += float64(u.PromptTokens)/1e6*inputPerMillion +
		float64(u.CompletionTokens)/1e6*outputPerMillion
}

// RecordTurn notes how long the latest model call took and the completion
// throughput it achieved. A zero elapsed time keeps the previous rate.
func (s *Stats) RecordTurn(completionTokens int, elapsed time.Duration) {
	s.LastTurnSeconds = elapsed.Seconds()
	if elapsed > 0 {
		s.TokensPerSecond = float64(completionTokens) / elapsed.Seconds()
	}
}

// TotalTokens returns the combined prompt and completion token count.
func (s *Stats) TotalTokens() int {
	return s.PromptTokens + s.CompletionTokens
}

// EstimateTokens approximates the token count of a transcript at four
// characters per token. Tool call arguments count too since they are sent
// with the request.
func EstimateTokens(messages []models.Message) int {
	chars := 0
	for _, m := range messages {
		chars += len(m.Content)
		for _, tc := range m.ToolCalls {
			chars += len(tc.Name) + len(tc.Arguments)
		}
	}
	return chars / 4
}
