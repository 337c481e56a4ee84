package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"

	"github.com/WantedChef/chefchat/internal/provider/models"
)

// WriteFileRequest is the argument shape for the write_file tool.
type WriteFileRequest struct {
	Path    string `mapstructure:"path"`
	Content string `mapstructure:"content"`
}

// WriteFileTool creates or overwrites a file inside the workspace.
type WriteFileTool struct {
	workspaceRoot string
}

func NewWriteFileTool(workspaceRoot string) *WriteFileTool {
	return &WriteFileTool{workspaceRoot: workspaceRoot}
}

func (t *WriteFileTool) Name() string { return "write_file" }

func (t *WriteFileTool) Definition() models.ToolDefinition {
	return models.ToolDefinition{
		Name:        "write_file",
		Description: "Create or overwrite a file in the workspace.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path relative to the workspace root.",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Full file content to write.",
				},
			},
			"required": []string{"path", "content"},
		},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	var req WriteFileRequest
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

	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return ErrorResult(fmt.Errorf("%s is a directory", rel)), nil
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return ErrorResult(err), nil
	}
	if err := os.WriteFile(abs, []byte(req.Content), 0o644); err != nil {
		return ErrorResult(err), nil
	}

	return &Result{Content: fmt.Sprintf("Wrote %d bytes to %s", len(req.Content), rel)}, nil
}
