// Package tool defines the tool surface exposed to the model: the Tool
// interface, the registry, and the builtin file and shell tools.
package tool

import (
	"context"

	"github.com/WantedChef/chefchat/internal/provider/models"
)

// Result is the outcome of a tool execution as reported back to the model.
// IsError marks tool-level failures (bad arguments, denied commands, missing
// files) that the model should see and react to.
type Result struct {
	Content string
	IsError bool
}

// Tool is a callable capability advertised to the model.
type Tool interface {
	Name() string
	Definition() models.ToolDefinition
	Execute(ctx context.Context, args map[string]any) (*Result, error)
}

// Permission is a tool's stance on user confirmation for one invocation.
type Permission string

const (
	// PermissionAlways runs without confirmation.
	PermissionAlways Permission = "always"
	// PermissionAsk requires user confirmation unless the mode or a session
	// grant waives it.
	PermissionAsk Permission = "ask"
	// PermissionNever refuses the invocation outright.
	PermissionNever Permission = "never"
)

// Classifier is implemented by tools whose permission depends on the
// arguments, such as the shell tool inspecting its command string. Tools
// without it default to PermissionAsk.
type Classifier interface {
	Permission(args map[string]any) Permission
}

// ErrorResult formats a tool-level failure for the model.
func ErrorResult(err error) *Result {
	return &Result{Content: "Error: " + err.Error(), IsError: true}
}
