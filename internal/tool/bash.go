package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/WantedChef/chefchat/internal/config"
	"github.com/WantedChef/chefchat/internal/executor"
	"github.com/WantedChef/chefchat/internal/provider/models"
)

// BashRequest is the argument shape for the bash tool.
type BashRequest struct {
	Command string `mapstructure:"command"`
	// Timeout in seconds. 0 uses the configured default.
	Timeout int `mapstructure:"timeout"`
}

// BashTool runs shell commands through the secure executor. Its permission is
// computed per invocation from the command text.
type BashTool struct {
	exec       *executor.Executor
	classifier *commandClassifier
	config     *config.Config
}

// NewBashTool creates the bash tool backed by the given executor.
func NewBashTool(exec *executor.Executor, cfg *config.Config) *BashTool {
	return &BashTool{
		exec: exec,
		classifier: newCommandClassifier(
			cfg.Tools.BashAllowlist,
			cfg.Tools.BashDenylist,
			cfg.Tools.BashDenylistStandalone,
		),
		config: cfg,
	}
}

func (t *BashTool) Name() string { return "bash" }

func (t *BashTool) Definition() models.ToolDefinition {
	return models.ToolDefinition{
		Name:        "bash",
		Description: "Run a shell command in the workspace and return its output.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "The command to execute.",
				},
				"timeout": map[string]any{
					"type":        "integer",
					"description": "Timeout in seconds. Omit to use the default.",
				},
			},
			"required": []string{"command"},
		},
	}
}

// Permission classifies the command text against the allow and deny lists.
func (t *BashTool) Permission(args map[string]any) Permission {
	var req BashRequest
	if err := mapstructure.Decode(args, &req); err != nil {
		return PermissionNever
	}
	if strings.TrimSpace(req.Command) == "" {
		return PermissionNever
	}
	return t.classifier.Classify(req.Command)
}

func (t *BashTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	var req BashRequest
	if err := mapstructure.Decode(args, &req); err != nil {
		return ErrorResult(fmt.Errorf("invalid arguments: %w", err)), nil
	}
	if strings.TrimSpace(req.Command) == "" {
		return ErrorResult(fmt.Errorf("command is required")), nil
	}

	if t.classifier.Classify(req.Command) == PermissionNever {
		return ErrorResult(fmt.Errorf("command %q is denied by policy", req.Command)), nil
	}

	timeout := time.Duration(req.Timeout) * time.Second
	res, err := t.exec.Execute(ctx, req.Command, timeout, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return ErrorResult(err), nil
	}

	return &Result{
		Content: formatCommandOutput(res),
		IsError: res.ExitCode != 0,
	}, nil
}

func formatCommandOutput(res *executor.Result) string {
	var b strings.Builder
	if res.Stdout != "" {
		b.WriteString(res.Stdout)
	}
	if res.Stderr != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(res.Stderr)
	}
	if res.Truncated {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("[output truncated]")
	}
	if res.ExitCode != 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Exit code: %d", res.ExitCode)
	}
	if b.Len() == 0 {
		return "(no output)"
	}
	return b.String()
}
