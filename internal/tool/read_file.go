package tool

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/WantedChef/chefchat/internal/config"
	"github.com/WantedChef/chefchat/internal/provider/models"
)

// ReadFileRequest is the argument shape for the read_file tool.
type ReadFileRequest struct {
	Path string `mapstructure:"path"`
	// StartLine and EndLine select a 1-based inclusive range. Zero values
	// mean the whole file.
	StartLine int `mapstructure:"start_line"`
	EndLine   int `mapstructure:"end_line"`
}

// ReadFileTool reads a file inside the workspace, optionally a line range.
type ReadFileTool struct {
	workspaceRoot string
	config        *config.Config
}

func NewReadFileTool(workspaceRoot string, cfg *config.Config) *ReadFileTool {
	return &ReadFileTool{workspaceRoot: workspaceRoot, config: cfg}
}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Definition() models.ToolDefinition {
	return models.ToolDefinition{
		Name:        "read_file",
		Description: "Read a file from the workspace, optionally a line range.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path relative to the workspace root.",
				},
				"start_line": map[string]any{
					"type":        "integer",
					"description": "First line to read, 1-based.",
				},
				"end_line": map[string]any{
					"type":        "integer",
					"description": "Last line to read, inclusive.",
				},
			},
			"required": []string{"path"},
		},
	}
}

// Permission is always granted: reading cannot mutate the workspace.
func (t *ReadFileTool) Permission(args map[string]any) Permission {
	return PermissionAlways
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	var req ReadFileRequest
	if err := mapstructure.Decode(args, &req); err != nil {
		return ErrorResult(fmt.Errorf("invalid arguments: %w", err)), nil
	}
	if req.Path == "" {
		return ErrorResult(fmt.Errorf("path is required")), nil
	}

	abs, rel, err := resolvePath(t.workspaceRoot, req.Path)
	if err != nil {
		return ErrorResult(err), nil
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrorResult(fmt.Errorf("%w: %s", ErrFileMissing, rel)), nil
		}
		return ErrorResult(err), nil
	}
	if info.IsDir() {
		return ErrorResult(fmt.Errorf("%s is a directory", rel)), nil
	}
	if info.Size() > t.config.Tools.MaxFileSize {
		return ErrorResult(fmt.Errorf("%w: %s (%d bytes)", ErrFileTooLarge, rel, info.Size())), nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return ErrorResult(err), nil
	}

	content := string(data)
	if req.StartLine > 0 || req.EndLine > 0 {
		content, err = sliceLines(content, req.StartLine, req.EndLine)
		if err != nil {
			return ErrorResult(err), nil
		}
	}
	return &Result{Content: content}, nil
}

// sliceLines extracts a 1-based inclusive line range.
func sliceLines(content string, start, end int) (string, error) {
	lines := strings.Split(content, "\n")
	if start <= 0 {
		start = 1
	}
	if end <= 0 || end > len(lines) {
		end = len(lines)
	}
	if start > len(lines) {
		return "", fmt.Errorf("start_line %d is past the end of the file (%d lines)", start, len(lines))
	}
	if start > end {
		return "", fmt.Errorf("start_line %d is after end_line %d", start, end)
	}
	return strings.Join(lines[start-1:end], "\n"), nil
}
