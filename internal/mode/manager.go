package mode

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Manager is the central mode state machine. It is shared between the engine
// and concurrent tool dispatches within a turn, so all state access goes
// through the mutex.
type Manager struct {
	mu    sync.RWMutex
	state State
}

// NewManager creates a Manager starting in the given mode.
func NewManager(initial Mode) (*Manager, error) {
	if _, ok := Configs[initial]; !ok {
		return nil, fmt.Errorf("unknown mode %q", initial)
	}
	m := &Manager{}
	m.apply(initial)
	return m, nil
}

// apply transitions to the target mode, recomputing the derived flags and
// appending a history entry. Callers hold the write lock (or own m
// exclusively, as NewManager does).
func (m *Manager) apply(target Mode) {
	cfg := Configs[target]
	now := time.Now()

	m.state.Current = target
	m.state.AutoApprove = cfg.AutoApprove
	m.state.ReadOnly = cfg.ReadOnly
	m.state.StartedAt = now
	m.state.History = append(m.state.History, Transition{Mode: target, At: now})
	if len(m.state.History) > maxHistory {
		m.state.History = m.state.History[len(m.state.History)-maxHistory:]
	}
}

// Current returns the active mode.
func (m *Manager) Current() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Current
}

// Set switches to a specific mode.
func (m *Manager) Set(target Mode) error {
	if _, ok := Configs[target]; !ok {
		return fmt.Errorf("unknown mode %q", target)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apply(target)
	return nil
}

// SetFromName switches modes using a case-insensitive mode name.
func (m *Manager) SetFromName(name string) (Mode, error) {
	normalized := Mode(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := Configs[normalized]; !ok {
		valid := make([]string, 0, len(CycleOrder))
		for _, mode := range CycleOrder {
			valid = append(valid, string(mode))
		}
		return "", fmt.Errorf("unknown mode %q, valid modes: %s", name, strings.Join(valid, ", "))
	}
	return normalized, m.Set(normalized)
}

// Cycle switches to the next mode in the fixed cycle order and returns the
// old and new modes.
func (m *Manager) Cycle() (old, next Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old = m.state.Current
	idx := 0
	for i, mode := range CycleOrder {
		if mode == old {
			idx = (i + 1) % len(CycleOrder)
			break
		}
	}
	next = CycleOrder[idx]
	m.apply(next)
	return old, next
}

// ShouldAutoApprove reports whether a tool may run without user confirmation
// in the current mode.
func (m *Manager) ShouldAutoApprove(toolName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state.AutoApprove {
		return true
	}
	// Read-only modes run their read-only tool set without prompting.
	if m.state.ReadOnly {
		return readOnlyTools[toolName]
	}
	return false
}

// ShouldBlock reports whether the current mode forbids this tool invocation.
// It is evaluated before, and independently of, any auto-approve shortcut:
// a write operation in a read-only mode never executes even if a caller has
// forced auto-approve elsewhere.
func (m *Manager) ShouldBlock(toolName string, args map[string]any) (bool, string) {
	m.mu.RLock()
	readOnly := m.state.ReadOnly
	current := m.state.Current
	indicator := Configs[current].Indicator
	m.mu.RUnlock()

	if !readOnly {
		return false, ""
	}
	if !IsWriteOperation(toolName, args) {
		return false, ""
	}

	reason := fmt.Sprintf(
		"Tool %q blocked in %s mode: this operation would modify files and the current mode (%s) is read-only. "+
			"Switch to NORMAL or AUTO mode to apply changes, or add this step to the plan instead.",
		toolName, indicator, strings.ToUpper(string(current)))
	return true, reason
}

// SetAutoApprove overrides the auto-approve flag without changing mode, for
// session-level toggles. ShouldBlock deliberately ignores this flag.
func (m *Manager) SetAutoApprove(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.AutoApprove = v
}

// Indicator returns the display string for the current mode, e.g. "📋 PLAN".
func (m *Manager) Indicator() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Configs[m.state.Current].Indicator
}

// Description returns the one-line description of the current mode.
func (m *Manager) Description() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Configs[m.state.Current].Description
}

// TransitionMessage formats the banner shown when switching modes.
func TransitionMessage(old, next Mode) string {
	cfg := Configs[next]
	return fmt.Sprintf("Mode: %s → %s\n%s: %s",
		strings.ToUpper(string(old)), strings.ToUpper(string(next)),
		cfg.Indicator, cfg.Description)
}

// SystemPromptModifier returns the mode-specific instruction block appended
// to the system prompt on every model query.
func (m *Manager) SystemPromptModifier() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return promptModifiers[m.state.Current]
}

// History returns a copy of the transition history.
func (m *Manager) History() []Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Transition, len(m.state.History))
	copy(out, m.state.History)
	return out
}
