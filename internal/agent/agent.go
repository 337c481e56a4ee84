// Package agent implements the conversation engine: the loop that alternates
// model calls and tool dispatches for one user request, bounded by the
// middleware pipeline and gated by the authorization layer.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/WantedChef/chefchat/internal/approval"
	"github.com/WantedChef/chefchat/internal/authorize"
	"github.com/WantedChef/chefchat/internal/config"
	"github.com/WantedChef/chefchat/internal/middleware"
	"github.com/WantedChef/chefchat/internal/mode"
	"github.com/WantedChef/chefchat/internal/provider/models"
	"github.com/WantedChef/chefchat/internal/session"
	"github.com/WantedChef/chefchat/internal/tool"
)

// Engine drives the conversation. One request runs at a time; Act returns
// ErrTurnInProgress if called concurrently.
type Engine struct {
	config     *config.Config
	backend    models.Backend
	registry   *tool.Registry
	authorizer *authorize.Authorizer
	gate       *approval.Gate
	modes      *mode.Manager
	pipeline   *middleware.Pipeline
	store      *session.Store

	systemPrompt string

	mu   sync.Mutex
	sess *session.Session
}

// Options bundles the engine's collaborators.
type Options struct {
	Config       *config.Config
	Backend      models.Backend
	Registry     *tool.Registry
	Authorizer   *authorize.Authorizer
	Gate         *approval.Gate
	Modes        *mode.Manager
	Pipeline     *middleware.Pipeline
	Store        *session.Store
	SystemPrompt string
	// Session resumes an existing transcript; nil starts fresh.
	Session *session.Session
}

// New creates an Engine.
func New(opts Options) *Engine {
	sess := opts.Session
	if sess == nil {
		sess = session.NewSession(opts.Config.Provider.Model)
	}
	e := &Engine{
		config:       opts.Config,
		backend:      opts.Backend,
		registry:     opts.Registry,
		authorizer:   opts.Authorizer,
		gate:         opts.Gate,
		modes:        opts.Modes,
		pipeline:     opts.Pipeline,
		store:        opts.Store,
		systemPrompt: opts.SystemPrompt,
		sess:         sess,
	}
	e.syncSystemMessage()
	return e
}

// syncSystemMessage keeps the transcript's leading system message current:
// the base prompt plus the active mode's instruction block. Rewriting
// messages[0] in place makes mode switches take effect mid-session without
// touching history.
func (e *Engine) syncSystemMessage() {
	system := e.systemPrompt
	if modifier := e.modes.SystemPromptModifier(); modifier != "" {
		if system != "" {
			system += "\n\n"
		}
		system += modifier
	}
	msg := models.Message{Role: models.RoleSystem, Content: system}
	if len(e.sess.Messages) == 0 || e.sess.Messages[0].Role != models.RoleSystem {
		e.sess.Messages = append([]models.Message{msg}, e.sess.Messages...)
		return
	}
	e.sess.Messages[0] = msg
}

// Session returns the live session. Read it only between Act calls.
func (e *Engine) Session() *session.Session { return e.sess }

// Stats returns the session counters. Read them only between Act calls.
func (e *Engine) Stats() *session.Stats { return &e.sess.Stats }

// Messages returns a copy of the transcript.
func (e *Engine) Messages() []models.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Message, len(e.sess.Messages))
	copy(out, e.sess.Messages)
	return out
}

// Clear drops the transcript down to the system message and forgets session
// grants, keeping the accumulated spend counters.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sess.Messages = nil
	e.syncSystemMessage()
	e.sess.Stats.ContextTokens = session.EstimateTokens(e.sess.Messages)
	e.authorizer.Forget()
	e.pipeline.Reset(middleware.ResetCompaction)
}

// Act processes one user request to completion: it loops over model calls and
// tool dispatches until the model answers without tool calls or a middleware
// stops the loop. The transcript is persisted at every loop boundary and on
// every error.
func (e *Engine) Act(ctx context.Context, userText string, events chan<- Event) error {
	if !e.mu.TryLock() {
		return ErrTurnInProgress
	}
	defer e.mu.Unlock()

	e.syncSystemMessage()
	e.sess.Messages = append(e.sess.Messages, models.Message{
		Role:    models.RoleUser,
		Content: userText,
	})
	e.pipeline.Reset(middleware.ResetNewRequest)
	e.persist()

	for {
		verdict := e.pipeline.BeforeTurn(e.middlewareContext())
		switch verdict.Action {
		case middleware.ActionStop:
			emit(events, StoppedEvent{Reason: verdict.Reason})
			e.persist()
			return nil
		case middleware.ActionInject:
			e.sess.Messages = append(e.sess.Messages, verdict.Message)
			emit(events, InfoEvent{Text: verdict.Message.Content})
		case middleware.ActionCompact:
			if err := e.compact(ctx, events); err != nil {
				e.persist()
				return err
			}
			e.pipeline.Reset(middleware.ResetCompaction)
		}

		started := time.Now()
		response, err := e.query(ctx, events)
		if err != nil {
			e.persist()
			return err
		}

		e.sess.Stats.Turns++
		e.sess.Stats.AddUsage(*response.Usage,
			e.config.Provider.InputPricePerMillion,
			e.config.Provider.OutputPricePerMillion)
		e.sess.Stats.RecordTurn(response.Usage.CompletionTokens, time.Since(started))
		e.sess.Messages = append(e.sess.Messages, response.Message)
		e.sess.Stats.ContextTokens = session.EstimateTokens(e.sess.Messages)
		e.persist()

		done := len(response.Message.ToolCalls) == 0
		if !done {
			if err := e.dispatchToolCalls(ctx, response.Message.ToolCalls, events); err != nil {
				e.persist()
				return err
			}
			e.sess.Stats.ContextTokens = session.EstimateTokens(e.sess.Messages)
			e.persist()
		}

		if after := e.pipeline.AfterTurn(e.middlewareContext()); after.Action == middleware.ActionStop {
			emit(events, StoppedEvent{Reason: after.Reason})
			e.persist()
			return nil
		}
		if done {
			return nil
		}
	}
}

func (e *Engine) middlewareContext() *middleware.Context {
	return &middleware.Context{
		Messages: e.sess.Messages,
		Stats:    &e.sess.Stats,
		Config:   e.config,
	}
}

// query performs one model call, streaming when configured and supported.
func (e *Engine) query(ctx context.Context, events chan<- Event) (*models.Chunk, error) {
	e.syncSystemMessage()
	if n := len(e.sess.Messages); n < 2 ||
		(e.sess.Messages[n-1].Role != models.RoleUser && e.sess.Messages[n-1].Role != models.RoleTool) {
		return nil, ErrConversationDesync
	}

	messages := make([]models.Message, len(e.sess.Messages))
	copy(messages, e.sess.Messages)

	req := models.CompletionRequest{
		Model:       e.config.Provider.Model,
		Messages:    messages,
		Tools:       e.registry.Definitions(),
		Temperature: e.config.Provider.Temperature,
		MaxTokens:   e.config.Provider.MaxTokens,
	}

	if !e.config.Agent.Streaming {
		return e.complete(ctx, req, events)
	}

	stream, err := e.backend.CompleteStreaming(ctx, req)
	if errors.Is(err, models.ErrStreamingNotSupported) {
		return e.complete(ctx, req, events)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = stream.Close() }()

	acc := newAccumulator(e.config.Agent.StreamBatchSize, func(text string) {
		emit(events, AssistantTextEvent{Text: text})
	})
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := acc.Add(chunk); err != nil {
			return nil, err
		}
	}
	return acc.Finalize()
}

func (e *Engine) complete(ctx context.Context, req models.CompletionRequest, events chan<- Event) (*models.Chunk, error) {
	response, err := e.backend.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if response.Usage == nil {
		return nil, &MalformedStreamError{Reason: "response without a usage report"}
	}
	if response.Message.Content != "" {
		emit(events, AssistantTextEvent{Text: response.Message.Content})
	}
	return response, nil
}

// dispatchToolCalls runs the calls in the order the model declared them and
// appends one tool result message per call, in the same order.
func (e *Engine) dispatchToolCalls(ctx context.Context, calls []models.ToolCall, events chan<- Event) error {
	for _, call := range calls {
		result := e.runToolCall(ctx, call, events)
		e.sess.Messages = append(e.sess.Messages, models.Message{
			Role:       models.RoleTool,
			Content:    result.Content,
			ToolCallID: call.ID,
		})
		e.sess.Stats.ToolCalls++
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (e *Engine) runToolCall(ctx context.Context, call models.ToolCall, events chan<- Event) *tool.Result {
	args, err := decodeArguments(call.Arguments)
	if err != nil {
		res := tool.ErrorResult(fmt.Errorf("invalid tool arguments: %w", err))
		emit(events, ToolResultEvent{ID: call.ID, Name: call.Name, Content: res.Content, IsError: true})
		return res
	}

	emit(events, ToolCallStartedEvent{ID: call.ID, Name: call.Name, Args: args})

	t, err := e.registry.Get(call.Name)
	if err != nil {
		res := tool.ErrorResult(err)
		emit(events, ToolResultEvent{ID: call.ID, Name: call.Name, Content: res.Content, IsError: true})
		return res
	}

	decision := e.authorizer.Decide(t, args)
	switch decision.Action {
	case authorize.ActionSkip:
		res := &tool.Result{Content: decision.Reason, IsError: true}
		emit(events, ToolResultEvent{
			ID: call.ID, Name: call.Name,
			Content: res.Content, IsError: true, Skipped: true, Reason: decision.Reason,
		})
		return res

	case authorize.ActionAwaitApproval:
		resolution := e.gate.RequestApproval(ctx, call.Name, args, call.Arguments)
		if resolution.Decision == approval.DecisionAlways {
			e.authorizer.RememberAlways(call.Name)
		}
		if !resolution.Approved() {
			reason := "Tool execution denied by user."
			if resolution.Reason != "" {
				reason = fmt.Sprintf("Tool execution denied: %s.", resolution.Reason)
			}
			res := &tool.Result{Content: reason, IsError: true}
			emit(events, ToolResultEvent{
				ID: call.ID, Name: call.Name,
				Content: res.Content, IsError: true, Skipped: true, Reason: reason,
			})
			return res
		}
	}

	res, err := t.Execute(ctx, args)
	if err != nil {
		res = tool.ErrorResult(err)
	}
	emit(events, ToolResultEvent{
		ID: call.ID, Name: call.Name,
		Content: res.Content, IsError: res.IsError,
	})
	return res
}

// decodeArguments parses the model-supplied JSON argument text. An empty
// string means no arguments.
func decodeArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// persist saves the session best effort; persistence failures never abort a
// turn.
func (e *Engine) persist() {
	if e.store == nil || !e.config.Sessions.Enabled {
		return
	}
	e.sess.Mode = string(e.modes.Current())
	_ = e.store.Save(e.sess)
}

// emit delivers an event without ever blocking the engine forever: events are
// dropped if the consumer stopped draining a full channel.
func emit(events chan<- Event, ev Event) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
	}
}
