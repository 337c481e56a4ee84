package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WantedChef/chefchat/internal/approval"
	"github.com/WantedChef/chefchat/internal/authorize"
	"github.com/WantedChef/chefchat/internal/config"
	"github.com/WantedChef/chefchat/internal/middleware"
	"github.com/WantedChef/chefchat/internal/mode"
	"github.com/WantedChef/chefchat/internal/provider/models"
	"github.com/WantedChef/chefchat/internal/tool"
)

type fakeBackend struct {
	completeFn  func(ctx context.Context, req models.CompletionRequest) (*models.Chunk, error)
	streamingFn func(ctx context.Context, req models.CompletionRequest) (models.Stream, error)
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Complete(ctx context.Context, req models.CompletionRequest) (*models.Chunk, error) {
	return f.completeFn(ctx, req)
}

func (f *fakeBackend) CompleteStreaming(ctx context.Context, req models.CompletionRequest) (models.Stream, error) {
	if f.streamingFn == nil {
		return nil, models.ErrStreamingNotSupported
	}
	return f.streamingFn(ctx, req)
}

type fakeStream struct {
	chunks []*models.Chunk
	pos    int
}

func (s *fakeStream) Recv() (*models.Chunk, error) {
	if s.pos >= len(s.chunks) {
		return nil, io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *fakeStream) Close() error { return nil }

// scriptedBackend answers each Complete call with the next scripted chunk.
func scriptedBackend(chunks ...*models.Chunk) *fakeBackend {
	i := 0
	return &fakeBackend{
		completeFn: func(ctx context.Context, req models.CompletionRequest) (*models.Chunk, error) {
			if i >= len(chunks) {
				return nil, fmt.Errorf("backend called %d times, scripted %d", i+1, len(chunks))
			}
			chunk := chunks[i]
			i++
			return chunk, nil
		},
	}
}

func textResponse(text string) *models.Chunk {
	return &models.Chunk{
		Message:      models.Message{Role: models.RoleAssistant, Content: text},
		Usage:        &models.Usage{PromptTokens: 10, CompletionTokens: 5},
		FinishReason: "stop",
	}
}

func toolCallResponse(calls ...models.ToolCall) *models.Chunk {
	return &models.Chunk{
		Message:      models.Message{Role: models.RoleAssistant, ToolCalls: calls},
		Usage:        &models.Usage{PromptTokens: 10, CompletionTokens: 5},
		FinishReason: "tool_calls",
	}
}

type recordingTool struct {
	name       string
	permission tool.Permission
	calls      []map[string]any
	result     *tool.Result
}

func (r *recordingTool) Name() string { return r.name }
func (r *recordingTool) Definition() models.ToolDefinition {
	return models.ToolDefinition{Name: r.name}
}
func (r *recordingTool) Permission(map[string]any) tool.Permission {
	return r.permission
}
func (r *recordingTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	r.calls = append(r.calls, args)
	if r.result != nil {
		return r.result, nil
	}
	return &tool.Result{Content: "done"}, nil
}

type engineEnv struct {
	engine *Engine
	gate   *approval.Gate
	modes  *mode.Manager
	auth   *authorize.Authorizer
	events chan Event
}

type engineOpt func(*config.Config)

func newTestEngine(t *testing.T, backend models.Backend, initialMode mode.Mode, tools []tool.Tool, opts ...engineOpt) *engineEnv {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Agent.Streaming = false
	cfg.Agent.AutoCompactThreshold = 0
	cfg.Sessions.Enabled = false
	for _, opt := range opts {
		opt(cfg)
	}

	modes, err := mode.NewManager(initialMode)
	require.NoError(t, err)

	registry := tool.NewRegistry()
	for _, tl := range tools {
		require.NoError(t, registry.Register(tl))
	}

	auth := authorize.New(modes)
	gate := approval.NewGate(0, nil)

	middlewares := []middleware.Middleware{
		middleware.NewPriceLimit(cfg.Agent.MaxPrice),
		middleware.NewTurnLimit(cfg.Agent.MaxTurns),
		middleware.NewAutoCompact(cfg.Agent.AutoCompactThreshold),
	}
	if cfg.Agent.ContextWarnings {
		middlewares = append(middlewares, middleware.NewContextWarning(cfg.Agent.AutoCompactThreshold))
	}

	engine := New(Options{
		Config:       cfg,
		Backend:      backend,
		Registry:     registry,
		Authorizer:   auth,
		Gate:         gate,
		Modes:        modes,
		Pipeline:     middleware.NewPipeline(middlewares...),
		SystemPrompt: "You are a coding agent.",
	})

	return &engineEnv{
		engine: engine,
		gate:   gate,
		modes:  modes,
		auth:   auth,
		events: make(chan Event, 256),
	}
}

func (env *engineEnv) drainEvents() []Event {
	var out []Event
	for {
		select {
		case ev := <-env.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestActPlainAnswer(t *testing.T) {
	env := newTestEngine(t, scriptedBackend(textResponse("hello there")), mode.ModeNormal, nil)

	require.NoError(t, env.engine.Act(context.Background(), "hi", env.events))

	messages := env.engine.Messages()
	require.Len(t, messages, 3)
	assert.Equal(t, models.RoleSystem, messages[0].Role)
	assert.Equal(t, models.RoleUser, messages[1].Role)
	assert.Equal(t, models.RoleAssistant, messages[2].Role)
	assert.Equal(t, "hello there", messages[2].Content)

	stats := env.engine.Stats()
	assert.Equal(t, 1, stats.Turns)
	assert.Equal(t, 15, stats.TotalTokens())
	assert.Greater(t, stats.Price, 0.0)
	assert.Greater(t, stats.ContextTokens, 0)
	assert.Greater(t, stats.TokensPerSecond, 0.0)

	events := env.drainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, AssistantTextEvent{Text: "hello there"}, events[0])
}

func TestActToolCallLoop(t *testing.T) {
	rt := &recordingTool{name: "lookup", permission: tool.PermissionAlways}
	backend := scriptedBackend(
		toolCallResponse(models.ToolCall{ID: "call_1", Name: "lookup", Arguments: `{"q":"x"}`}),
		textResponse("the answer"),
	)
	env := newTestEngine(t, backend, mode.ModeNormal, []tool.Tool{rt})

	require.NoError(t, env.engine.Act(context.Background(), "find x", env.events))

	require.Len(t, rt.calls, 1)
	assert.Equal(t, "x", rt.calls[0]["q"])

	messages := env.engine.Messages()
	require.Len(t, messages, 5)
	assert.Equal(t, models.RoleTool, messages[3].Role)
	assert.Equal(t, "call_1", messages[3].ToolCallID)
	assert.Equal(t, "done", messages[3].Content)
	assert.Equal(t, "the answer", messages[4].Content)

	assert.Equal(t, 2, env.engine.Stats().Turns)
	assert.Equal(t, 1, env.engine.Stats().ToolCalls)
}

func TestActToolOrderPreserved(t *testing.T) {
	first := &recordingTool{name: "first", permission: tool.PermissionAlways, result: &tool.Result{Content: "r1"}}
	second := &recordingTool{name: "second", permission: tool.PermissionAlways, result: &tool.Result{Content: "r2"}}
	backend := scriptedBackend(
		toolCallResponse(
			models.ToolCall{ID: "c1", Name: "first", Arguments: `{}`},
			models.ToolCall{ID: "c2", Name: "second", Arguments: `{}`},
		),
		textResponse("ok"),
	)
	env := newTestEngine(t, backend, mode.ModeNormal, []tool.Tool{first, second})

	require.NoError(t, env.engine.Act(context.Background(), "go", env.events))

	messages := env.engine.Messages()
	require.Len(t, messages, 6)
	assert.Equal(t, "c1", messages[3].ToolCallID)
	assert.Equal(t, "r1", messages[3].Content)
	assert.Equal(t, "c2", messages[4].ToolCallID)
	assert.Equal(t, "r2", messages[4].Content)
}

func TestActUnknownTool(t *testing.T) {
	backend := scriptedBackend(
		toolCallResponse(models.ToolCall{ID: "c1", Name: "no_such_tool", Arguments: `{}`}),
		textResponse("recovered"),
	)
	env := newTestEngine(t, backend, mode.ModeNormal, nil)

	require.NoError(t, env.engine.Act(context.Background(), "go", env.events))

	messages := env.engine.Messages()
	require.Len(t, messages, 5)
	assert.Contains(t, messages[3].Content, "unknown tool")
}

func TestActReadOnlyModeBlocksWrites(t *testing.T) {
	wt := &recordingTool{name: "write_file", permission: tool.PermissionAsk}
	backend := scriptedBackend(
		toolCallResponse(models.ToolCall{ID: "c1", Name: "write_file", Arguments: `{"path":"a","content":"b"}`}),
		textResponse("noted"),
	)
	env := newTestEngine(t, backend, mode.ModePlan, []tool.Tool{wt})

	require.NoError(t, env.engine.Act(context.Background(), "write it", env.events))

	assert.Empty(t, wt.calls)
	messages := env.engine.Messages()
	assert.Contains(t, messages[3].Content, "blocked")

	var sawSkip bool
	for _, ev := range env.drainEvents() {
		if res, ok := ev.(ToolResultEvent); ok && res.Skipped {
			sawSkip = true
		}
	}
	assert.True(t, sawSkip)
}

func TestActApprovalFlow(t *testing.T) {
	t.Run("ApprovedRuns", func(t *testing.T) {
		rt := &recordingTool{name: "bash", permission: tool.PermissionAsk}
		backend := scriptedBackend(
			toolCallResponse(models.ToolCall{ID: "c1", Name: "bash", Arguments: `{"command":"make"}`}),
			textResponse("ok"),
		)
		env := newTestEngine(t, backend, mode.ModeNormal, []tool.Tool{rt})

		go func() {
			for {
				if pending := env.gate.Pending(); len(pending) > 0 {
					env.gate.Resolve(pending[0].ID, approval.DecisionYes, "")
					return
				}
			}
		}()

		require.NoError(t, env.engine.Act(context.Background(), "build", env.events))
		assert.Len(t, rt.calls, 1)
	})

	t.Run("DeniedSkips", func(t *testing.T) {
		rt := &recordingTool{name: "bash", permission: tool.PermissionAsk}
		backend := scriptedBackend(
			toolCallResponse(models.ToolCall{ID: "c1", Name: "bash", Arguments: `{"command":"make"}`}),
			textResponse("understood"),
		)
		env := newTestEngine(t, backend, mode.ModeNormal, []tool.Tool{rt})

		go func() {
			for {
				if pending := env.gate.Pending(); len(pending) > 0 {
					env.gate.Resolve(pending[0].ID, approval.DecisionNo, "declined")
					return
				}
			}
		}()

		require.NoError(t, env.engine.Act(context.Background(), "build", env.events))
		assert.Empty(t, rt.calls)
		assert.Contains(t, env.engine.Messages()[3].Content, "declined")
	})

	t.Run("AlwaysGrantsSession", func(t *testing.T) {
		rt := &recordingTool{name: "bash", permission: tool.PermissionAsk}
		backend := scriptedBackend(
			toolCallResponse(models.ToolCall{ID: "c1", Name: "bash", Arguments: `{"command":"make"}`}),
			toolCallResponse(models.ToolCall{ID: "c2", Name: "bash", Arguments: `{"command":"make test"}`}),
			textResponse("done"),
		)
		env := newTestEngine(t, backend, mode.ModeNormal, []tool.Tool{rt})

		go func() {
			for {
				if pending := env.gate.Pending(); len(pending) > 0 {
					env.gate.Resolve(pending[0].ID, approval.DecisionAlways, "")
					return
				}
			}
		}()

		require.NoError(t, env.engine.Act(context.Background(), "build twice", env.events))
		// The second invocation rode the session grant without asking again:
		// the resolver goroutine answered exactly once.
		assert.Len(t, rt.calls, 2)
		assert.Empty(t, env.gate.Pending())
	})
}

func TestActAutoModeSkipsApproval(t *testing.T) {
	rt := &recordingTool{name: "bash", permission: tool.PermissionAsk}
	backend := scriptedBackend(
		toolCallResponse(models.ToolCall{ID: "c1", Name: "bash", Arguments: `{"command":"make"}`}),
		textResponse("ok"),
	)
	env := newTestEngine(t, backend, mode.ModeAuto, []tool.Tool{rt})

	require.NoError(t, env.engine.Act(context.Background(), "build", env.events))
	assert.Len(t, rt.calls, 1)
}

func TestActTurnLimitStops(t *testing.T) {
	rt := &recordingTool{name: "loop", permission: tool.PermissionAlways}
	// The model keeps asking for tools forever.
	backend := &fakeBackend{
		completeFn: func(ctx context.Context, req models.CompletionRequest) (*models.Chunk, error) {
			return toolCallResponse(models.ToolCall{ID: "c", Name: "loop", Arguments: `{}`}), nil
		},
	}
	env := newTestEngine(t, backend, mode.ModeNormal, []tool.Tool{rt}, func(cfg *config.Config) {
		cfg.Agent.MaxTurns = 3
	})

	require.NoError(t, env.engine.Act(context.Background(), "go", env.events))

	assert.Len(t, rt.calls, 3)

	var stopped *StoppedEvent
	for _, ev := range env.drainEvents() {
		if s, ok := ev.(StoppedEvent); ok {
			stopped = &s
		}
	}
	require.NotNil(t, stopped)
	assert.Contains(t, stopped.Reason, "turn limit")
}

func TestActStreaming(t *testing.T) {
	t.Run("StreamsAndBatches", func(t *testing.T) {
		backend := &fakeBackend{
			streamingFn: func(ctx context.Context, req models.CompletionRequest) (models.Stream, error) {
				return &fakeStream{chunks: []*models.Chunk{
					textChunk("hel"),
					textChunk("lo "),
					textChunk("wor"),
					textChunk("ld"),
					{Usage: &models.Usage{PromptTokens: 4, CompletionTokens: 2}, FinishReason: "stop"},
				}}, nil
			},
		}
		env := newTestEngine(t, backend, mode.ModeNormal, nil, func(cfg *config.Config) {
			cfg.Agent.Streaming = true
			cfg.Agent.StreamBatchSize = 2
		})

		require.NoError(t, env.engine.Act(context.Background(), "hi", env.events))

		var texts []string
		for _, ev := range env.drainEvents() {
			if te, ok := ev.(AssistantTextEvent); ok {
				texts = append(texts, te.Text)
			}
		}
		// Each event carries the text so far, so a dropped event costs
		// nothing once the next one lands.
		assert.Equal(t, []string{"hello ", "hello world"}, texts)
		assert.Equal(t, "hello world", env.engine.Messages()[2].Content)
		assert.Equal(t, 6, env.engine.Stats().TotalTokens())
	})

	t.Run("FallsBackWhenUnsupported", func(t *testing.T) {
		backend := scriptedBackend(textResponse("plain"))
		env := newTestEngine(t, backend, mode.ModeNormal, nil, func(cfg *config.Config) {
			cfg.Agent.Streaming = true
		})

		require.NoError(t, env.engine.Act(context.Background(), "hi", env.events))
		assert.Equal(t, "plain", env.engine.Messages()[2].Content)
	})

	t.Run("MalformedStreamAborts", func(t *testing.T) {
		backend := &fakeBackend{
			streamingFn: func(ctx context.Context, req models.CompletionRequest) (models.Stream, error) {
				return &fakeStream{chunks: []*models.Chunk{
					textChunk("partial"),
					// Stream ends without a usage report.
				}}, nil
			},
		}
		env := newTestEngine(t, backend, mode.ModeNormal, nil, func(cfg *config.Config) {
			cfg.Agent.Streaming = true
		})

		err := env.engine.Act(context.Background(), "hi", env.events)
		var streamErr *MalformedStreamError
		require.True(t, errors.As(err, &streamErr))
		// The failed assistant turn is not in the transcript.
		assert.Len(t, env.engine.Messages(), 2)
	})
}

func TestActCompaction(t *testing.T) {
	calls := 0
	backend := &fakeBackend{
		completeFn: func(ctx context.Context, req models.CompletionRequest) (*models.Chunk, error) {
			calls++
			if calls == 1 {
				return textResponse("a compact summary"), nil
			}
			return textResponse("continuing"), nil
		},
	}
	env := newTestEngine(t, backend, mode.ModeNormal, nil, func(cfg *config.Config) {
		cfg.Agent.AutoCompactThreshold = 10
		cfg.Agent.ContextWarnings = false
	})

	long := "this user message alone is comfortably past the tiny threshold used in this test"
	require.NoError(t, env.engine.Act(context.Background(), long, env.events))

	messages := env.engine.Messages()
	require.Len(t, messages, 3)
	assert.Equal(t, models.RoleSystem, messages[0].Role)
	assert.Contains(t, messages[1].Content, "a compact summary")
	assert.Equal(t, "continuing", messages[2].Content)
	assert.Equal(t, 1, env.engine.Stats().Compactions)

	var sawStart, sawEnd bool
	for _, ev := range env.drainEvents() {
		switch ev.(type) {
		case CompactStartEvent:
			sawStart = true
		case CompactEndEvent:
			sawEnd = true
		}
	}
	assert.True(t, sawStart)
	assert.True(t, sawEnd)
}

func TestActProviderErrorPropagates(t *testing.T) {
	backend := &fakeBackend{
		completeFn: func(ctx context.Context, req models.CompletionRequest) (*models.Chunk, error) {
			return nil, &models.ProviderError{Code: models.ErrorCodeRateLimit, Provider: "fake", Message: "slow down"}
		},
	}
	env := newTestEngine(t, backend, mode.ModeNormal, nil)

	err := env.engine.Act(context.Background(), "hi", env.events)
	require.Error(t, err)
	assert.Equal(t, models.ErrorCodeRateLimit, models.CodeOf(err))
	assert.NotEmpty(t, RecoveryHint(err))
}

func TestActConcurrentRequests(t *testing.T) {
	blocker := make(chan struct{})
	started := make(chan struct{})
	var startedOnce sync.Once
	backend := &fakeBackend{
		completeFn: func(ctx context.Context, req models.CompletionRequest) (*models.Chunk, error) {
			startedOnce.Do(func() { close(started) })
			<-blocker
			return textResponse("ok"), nil
		},
	}
	env := newTestEngine(t, backend, mode.ModeNormal, nil)

	done := make(chan error, 1)
	go func() { done <- env.engine.Act(context.Background(), "first", env.events) }()

	// Wait for the first request to take the turn lock.
	<-started
	require.Eventually(t, func() bool {
		return errors.Is(env.engine.Act(context.Background(), "second", env.events), ErrTurnInProgress)
	}, time.Second, 5*time.Millisecond)

	close(blocker)
	require.NoError(t, <-done)
}

func TestActSystemPromptCarriesModeModifier(t *testing.T) {
	var seenSystem string
	backend := &fakeBackend{
		completeFn: func(ctx context.Context, req models.CompletionRequest) (*models.Chunk, error) {
			seenSystem = req.Messages[0].Content
			return textResponse("ok"), nil
		},
	}
	env := newTestEngine(t, backend, mode.ModePlan, nil)

	require.NoError(t, env.engine.Act(context.Background(), "hi", env.events))
	assert.Contains(t, seenSystem, "You are a coding agent.")
	assert.Contains(t, seenSystem, "PLAN mode")

	stored := env.engine.Messages()[0]
	assert.Equal(t, models.RoleSystem, stored.Role)
	assert.Equal(t, seenSystem, stored.Content)

	// Switching modes rewrites the stored system message on the next call
	// instead of stacking instruction blocks in history.
	_, err := env.modes.SetFromName("normal")
	require.NoError(t, err)
	require.NoError(t, env.engine.Act(context.Background(), "again", env.events))
	assert.Contains(t, seenSystem, "NORMAL mode")
	assert.NotContains(t, seenSystem, "PLAN mode")
	assert.Equal(t, seenSystem, env.engine.Messages()[0].Content)
}

func TestQueryRejectsDesyncedTranscript(t *testing.T) {
	backend := &fakeBackend{
		completeFn: func(ctx context.Context, req models.CompletionRequest) (*models.Chunk, error) {
			t.Fatal("backend must not be queried from a desynced transcript")
			return nil, nil
		},
	}
	env := newTestEngine(t, backend, mode.ModeNormal, nil)

	env.engine.sess.Messages = []models.Message{
		{Role: models.RoleSystem, Content: "prompt"},
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	}

	_, err := env.engine.query(context.Background(), nil)
	assert.ErrorIs(t, err, ErrConversationDesync)
}

func TestCompactNow(t *testing.T) {
	t.Run("LeavesSystemPlusSummary", func(t *testing.T) {
		backend := scriptedBackend(
			textResponse("hello there"),
			textResponse("everything that happened so far"),
		)
		env := newTestEngine(t, backend, mode.ModeNormal, nil)

		require.NoError(t, env.engine.Act(context.Background(), "hi", env.events))
		require.NoError(t, env.engine.CompactNow(context.Background(), env.events))

		messages := env.engine.Messages()
		require.Len(t, messages, 2)
		assert.Equal(t, models.RoleSystem, messages[0].Role)
		assert.Contains(t, messages[0].Content, "You are a coding agent.")
		assert.Equal(t, models.RoleUser, messages[1].Role)
		assert.Contains(t, messages[1].Content, "everything that happened so far")
		assert.Equal(t, 1, env.engine.Stats().Compactions)
	})

	t.Run("EmptyConversation", func(t *testing.T) {
		env := newTestEngine(t, scriptedBackend(), mode.ModeNormal, nil)
		assert.Error(t, env.engine.CompactNow(context.Background(), env.events))
	})
}

func TestActPriceLimitStopsAfterFinalResponse(t *testing.T) {
	backend := scriptedBackend(textResponse("a costly answer"))
	env := newTestEngine(t, backend, mode.ModeNormal, nil, func(cfg *config.Config) {
		cfg.Agent.MaxPrice = 0.00001
	})

	require.NoError(t, env.engine.Act(context.Background(), "hi", env.events))

	// The spend crossed the cap on the only turn of the request, so the
	// stop is reported within the same Act call.
	var stopped *StoppedEvent
	for _, ev := range env.drainEvents() {
		if s, ok := ev.(StoppedEvent); ok {
			stopped = &s
		}
	}
	require.NotNil(t, stopped)
	assert.Contains(t, stopped.Reason, "price limit")
	assert.Equal(t, 1, env.engine.Stats().Turns)
}
