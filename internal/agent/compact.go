package agent

import (
	"context"
	"fmt"

	"github.com/WantedChef/chefchat/internal/middleware"
	"github.com/WantedChef/chefchat/internal/provider/models"
	"github.com/WantedChef/chefchat/internal/session"
)

const compactionPrompt = "Summarize the conversation so far for your own future reference. " +
	"Keep every detail needed to continue the work: the user's goals, decisions made, " +
	"files touched with their current state, commands run with their outcomes, and open items. " +
	"Answer with the summary only."

// compact collapses the transcript to the system message plus a model-written
// summary. The summary is stored as a user-role message so the transcript
// still ends in a position from which the model can answer. Counters are
// charged, never refunded.
func (e *Engine) compact(ctx context.Context, events chan<- Event) error {
	e.syncSystemMessage()
	before := session.EstimateTokens(e.sess.Messages)
	emit(events, CompactStartEvent{EstimatedTokens: before})

	request := make([]models.Message, 0, len(e.sess.Messages)+1)
	request = append(request, e.sess.Messages...)
	request = append(request, models.Message{
		Role:    models.RoleUser,
		Content: compactionPrompt,
	})

	req := models.CompletionRequest{
		Model:       e.config.Provider.Model,
		Messages:    request,
		Temperature: e.config.Provider.Temperature,
		MaxTokens:   e.config.Provider.MaxTokens,
	}

	response, err := e.backend.Complete(ctx, req)
	if err != nil {
		return fmt.Errorf("compaction failed: %w", err)
	}
	if response.Usage != nil {
		e.sess.Stats.AddUsage(*response.Usage,
			e.config.Provider.InputPricePerMillion,
			e.config.Provider.OutputPricePerMillion)
	}

	e.sess.Messages = []models.Message{
		e.sess.Messages[0],
		{
			Role: models.RoleUser,
			Content: "[conversation summary]\n" + response.Message.Content +
				"\nContinue from this state.",
		},
	}
	e.sess.Stats.Compactions++

	after := session.EstimateTokens(e.sess.Messages)
	e.sess.Stats.ContextTokens = after
	emit(events, CompactEndEvent{
		EstimatedTokensBefore: before,
		EstimatedTokensAfter:  after,
	})
	e.persist()
	return nil
}

// CompactNow compacts on user request, outside the Act loop.
func (e *Engine) CompactNow(ctx context.Context, events chan<- Event) error {
	if !e.mu.TryLock() {
		return ErrTurnInProgress
	}
	defer e.mu.Unlock()

	e.syncSystemMessage()
	if len(e.sess.Messages) < 2 {
		return fmt.Errorf("nothing to compact")
	}
	if err := e.compact(ctx, events); err != nil {
		return err
	}
	e.pipeline.Reset(middleware.ResetCompaction)
	return nil
}
