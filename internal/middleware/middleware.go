// Package middleware implements the policy hooks that bracket every model
// call: each one can let the turn proceed, stop the conversation, inject a
// message or request transcript compaction.
package middleware

import (
	"github.com/WantedChef/chefchat/internal/config"
	"github.com/WantedChef/chefchat/internal/provider/models"
	"github.com/WantedChef/chefchat/internal/session"
)

// Action is what a middleware wants done at a turn boundary.
type Action int

const (
	// ActionContinue lets the turn proceed.
	ActionContinue Action = iota
	// ActionStop ends the conversation loop; Reason says why.
	ActionStop
	// ActionInject appends Message to the transcript and proceeds.
	ActionInject
	// ActionCompact asks the engine to compact the transcript first.
	ActionCompact
)

// Result is a middleware verdict.
type Result struct {
	Action  Action
	Reason  string
	Message models.Message
}

// Continue is the empty pass-through verdict.
func Continue() Result { return Result{Action: ActionContinue} }

// ResetEvent tells middlewares which boundary was crossed so stateful ones
// can re-arm.
type ResetEvent int

const (
	// ResetNewRequest fires when a new user message starts a loop.
	ResetNewRequest ResetEvent = iota
	// ResetCompaction fires after the transcript was compacted.
	ResetCompaction
)

// Context is the state a middleware inspects.
type Context struct {
	Messages []models.Message
	Stats    *session.Stats
	Config   *config.Config
}

// Middleware is one policy hook pair. BeforeTurn runs ahead of each model
// call and can stop, inject or compact; AfterTurn runs once the turn's
// response and tool results are in the transcript, so caps crossed by the
// turn itself take effect immediately.
type Middleware interface {
	Name() string
	BeforeTurn(ctx *Context) Result
	AfterTurn(ctx *Context) Result
	Reset(event ResetEvent)
}

// Pipeline runs middlewares in order; the first verdict that is not
// ActionContinue wins.
type Pipeline struct {
	middlewares []Middleware
}

// NewPipeline creates a pipeline running the given middlewares in order.
func NewPipeline(middlewares ...Middleware) *Pipeline {
	return &Pipeline{middlewares: middlewares}
}

// BeforeTurn runs all pre-call hooks against the context.
func (p *Pipeline) BeforeTurn(ctx *Context) Result {
	for _, m := range p.middlewares {
		if res := m.BeforeTurn(ctx); res.Action != ActionContinue {
			return res
		}
	}
	return Continue()
}

// AfterTurn runs all post-turn hooks against the context.
func (p *Pipeline) AfterTurn(ctx *Context) Result {
	for _, m := range p.middlewares {
		if res := m.AfterTurn(ctx); res.Action != ActionContinue {
			return res
		}
	}
	return Continue()
}

// Reset forwards the boundary event to every middleware.
func (p *Pipeline) Reset(event ResetEvent) {
	for _, m := range p.middlewares {
		m.Reset(event)
	}
}
