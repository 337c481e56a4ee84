package middleware

import (
	"fmt"

	"github.com/WantedChef/chefchat/internal/provider/models"
	"github.com/WantedChef/chefchat/internal/session"
)

// warningFraction of the compaction threshold at which the context warning
// fires.
const warningFraction = 0.8

// AutoCompact requests transcript compaction when the estimated context size
// crosses the threshold.
type AutoCompact struct {
	threshold int
}

// NewAutoCompact creates the compaction trigger. threshold <= 0 disables it.
func NewAutoCompact(threshold int) *AutoCompact {
	return &AutoCompact{threshold: threshold}
}

func (a *AutoCompact) Name() string { return "auto_compact" }

func (a *AutoCompact) BeforeTurn(ctx *Context) Result {
	if a.threshold <= 0 {
		return Continue()
	}
	if session.EstimateTokens(ctx.Messages) >= a.threshold {
		return Result{Action: ActionCompact}
	}
	return Continue()
}

// AfterTurn passes; compaction only matters ahead of the next call.
func (a *AutoCompact) AfterTurn(*Context) Result { return Continue() }

func (a *AutoCompact) Reset(ResetEvent) {}

// ContextWarning injects a one-shot warning when the context estimate nears
// the compaction threshold. It re-arms after compaction so a transcript that
// grows back gets warned again.
type ContextWarning struct {
	threshold int
	warned    bool
}

// NewContextWarning creates the warning middleware. threshold <= 0 disables
// it.
func NewContextWarning(threshold int) *ContextWarning {
	return &ContextWarning{threshold: threshold}
}

func (c *ContextWarning) Name() string { return "context_warning" }

func (c *ContextWarning) BeforeTurn(ctx *Context) Result {
	if c.threshold <= 0 || c.warned {
		return Continue()
	}
	estimate := session.EstimateTokens(ctx.Messages)
	if float64(estimate) < warningFraction*float64(c.threshold) {
		return Continue()
	}
	c.warned = true
	return Result{
		Action: ActionInject,
		Message: models.Message{
			Role: models.RoleUser,
			Content: fmt.Sprintf(
				"[context warning] The conversation is near the compaction threshold (~%d of %d estimated tokens). Wrap up or expect the transcript to be summarized soon.",
				estimate, c.threshold),
		},
	}
}

// AfterTurn passes; an injected warning belongs before the call it precedes.
func (c *ContextWarning) AfterTurn(*Context) Result { return Continue() }

func (c *ContextWarning) Reset(event ResetEvent) {
	if event == ResetCompaction {
		c.warned = false
	}
}
