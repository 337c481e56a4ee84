// Package authorize decides what happens to each tool invocation before it
// runs: execute it, skip it with a reason, or hold it for user approval.
package authorize

import (
	"fmt"
	"sync"

	"github.com/WantedChef/chefchat/internal/mode"
	"github.com/WantedChef/chefchat/internal/tool"
)

// Action is the outcome of an authorization decision.
type Action int

const (
	// ActionExecute runs the tool immediately.
	ActionExecute Action = iota
	// ActionSkip refuses the tool; Reason is reported back to the model.
	ActionSkip
	// ActionAwaitApproval holds the tool until the user answers.
	ActionAwaitApproval
)

// Decision is the result of evaluating one tool invocation.
type Decision struct {
	Action Action
	Reason string
}

// Authorizer evaluates tool invocations against the mode, the tool's own
// permission and the session's remembered grants.
type Authorizer struct {
	modes *mode.Manager

	mu             sync.Mutex
	sessionAllowed map[string]bool
}

// New creates an Authorizer bound to the mode manager.
func New(modes *mode.Manager) *Authorizer {
	return &Authorizer{
		modes:          modes,
		sessionAllowed: make(map[string]bool),
	}
}

// Decide evaluates one invocation. The mode block check runs first and is
// independent of every approval path: nothing that follows can resurrect a
// blocked write.
func (a *Authorizer) Decide(t tool.Tool, args map[string]any) Decision {
	name := t.Name()

	if blocked, reason := a.modes.ShouldBlock(name, args); blocked {
		return Decision{Action: ActionSkip, Reason: reason}
	}

	permission := tool.PermissionAsk
	if c, ok := t.(tool.Classifier); ok {
		permission = c.Permission(args)
	}

	switch permission {
	case tool.PermissionNever:
		return Decision{
			Action: ActionSkip,
			Reason: fmt.Sprintf("Tool %q invocation denied by policy.", name),
		}
	case tool.PermissionAlways:
		return Decision{Action: ActionExecute}
	}

	if a.isSessionAllowed(name) {
		return Decision{Action: ActionExecute}
	}
	if a.modes.ShouldAutoApprove(name) {
		return Decision{Action: ActionExecute}
	}
	return Decision{Action: ActionAwaitApproval}
}

// RememberAlways records a session-wide grant for the tool, given when the
// user answers "always".
func (a *Authorizer) RememberAlways(toolName string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessionAllowed[toolName] = true
}

// Forget clears all session grants.
func (a *Authorizer) Forget() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessionAllowed = make(map[string]bool)
}

func (a *Authorizer) isSessionAllowed(toolName string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionAllowed[toolName]
}
