package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/WantedChef/chefchat/internal/agent"
)

func TestCompactArgs(t *testing.T) {
	assert.Equal(t, "", compactArgs(nil))
	assert.Equal(t, "command=ls path=/tmp", compactArgs(map[string]any{
		"path":    "/tmp",
		"command": "ls",
	}))
}

func TestTruncateForDisplay(t *testing.T) {
	assert.Equal(t, "short", truncateForDisplay("short", 10))
	assert.Equal(t, "0123456789…", truncateForDisplay("0123456789abc", 10))
}

func TestApplyEventBuffersAssistantText(t *testing.T) {
	m := &Model{}

	// Text events are cumulative; the newest one replaces the buffer.
	m.applyEvent(agent.AssistantTextEvent{Text: "hello "})
	m.applyEvent(agent.AssistantTextEvent{Text: "hello world"})
	assert.Empty(t, m.entries)
	assert.Equal(t, "hello world", m.assistantBuf)

	// A tool call flushes the buffered text into an entry first.
	m.applyEvent(agent.ToolCallStartedEvent{Name: "bash", Args: map[string]any{"command": "ls"}})
	if assert.Len(t, m.entries, 2) {
		assert.Equal(t, entryAssistant, m.entries[0].kind)
		assert.Equal(t, "hello world", m.entries[0].text)
		assert.Equal(t, entryTool, m.entries[1].kind)
		assert.Contains(t, m.entries[1].text, "bash")
	}
	assert.Empty(t, m.assistantBuf)
}

func TestModelCopySurvivesStreaming(t *testing.T) {
	// bubbletea passes the model by value, so every update works on a copy
	// of the previous one. Streaming state must survive that copying.
	m := Model{}
	m.applyEvent(agent.AssistantTextEvent{Text: "hello "})

	next := m
	next.applyEvent(agent.AssistantTextEvent{Text: "hello world"})
	assert.Equal(t, "hello world", next.assistantBuf)
	assert.Equal(t, "hello ", m.assistantBuf)
}

func TestApplyEventToolResult(t *testing.T) {
	m := &Model{}

	m.applyEvent(agent.ToolResultEvent{Name: "bash", Content: "ok"})
	m.applyEvent(agent.ToolResultEvent{Name: "bash", Skipped: true, Reason: "blocked in plan mode"})
	m.applyEvent(agent.ToolResultEvent{Name: "bash", Content: "boom", IsError: true})

	if assert.Len(t, m.entries, 3) {
		assert.Equal(t, entryTool, m.entries[0].kind)
		assert.Contains(t, m.entries[1].text, "skipped: blocked in plan mode")
		assert.Equal(t, entryError, m.entries[2].kind)
	}
}

func TestApplyEventStopped(t *testing.T) {
	m := &Model{}
	m.applyEvent(agent.AssistantTextEvent{Text: "partial"})
	m.applyEvent(agent.StoppedEvent{Reason: "turn limit of 3 reached"})

	if assert.Len(t, m.entries, 2) {
		assert.Equal(t, "partial", m.entries[0].text)
		assert.Contains(t, m.entries[1].text, "turn limit")
	}
}
