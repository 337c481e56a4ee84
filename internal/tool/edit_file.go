package tool

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/WantedChef/chefchat/internal/provider/models"
)

// EditFileRequest is the argument shape for the edit_file tool.
type EditFileRequest struct {
	Path      string `mapstructure:"path"`
	OldString string `mapstructure:"old_string"`
	NewString string `mapstructure:"new_string"`
	// ReplaceAll replaces every occurrence instead of requiring a unique one.
	ReplaceAll bool `mapstructure:"replace_all"`
}

// EditFileTool performs exact string replacement inside a workspace file.
type EditFileTool struct {
	workspaceRoot string
}

func NewEditFileTool(workspaceRoot string) *EditFileTool {
	return &EditFileTool{workspaceRoot: workspaceRoot}
}

func (t *EditFileTool) Name() string { return "edit_file" }

func (t *EditFileTool) Definition() models.ToolDefinition {
	return models.ToolDefinition{
		Name:        "edit_file",
		Description: "Replace an exact string in a workspace file.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path relative to the workspace root.",
				},
				"old_string": map[string]any{
					"type":        "string",
					"description": "Exact text to replace. Must be unique unless replace_all is set.",
				},
				"new_string": map[string]any{
					"type":        "string",
					"description": "Replacement text.",
				},
				"replace_all": map[string]any{
					"type":        "boolean",
					"description": "Replace every occurrence.",
				},
			},
			"required": []string{"path", "old_string", "new_string"},
		},
	}
}

func (t *EditFileTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	var req EditFileRequest
	if err := mapstructure.Decode(args, &req); err != nil {
		return ErrorResult(fmt.Errorf("invalid arguments: %w", err)), nil
	}
	if req.Path == "" {
		return ErrorResult(fmt.Errorf("path is required")), nil
	}
	if req.OldString == "" {
		return ErrorResult(fmt.Errorf("old_string is required")), nil
	}
	if req.OldString == req.NewString {
		return ErrorResult(&EditError{Path: req.Path, Reason: "old_string and new_string are identical"}), nil
	}

	abs, rel, err := resolvePath(t.workspaceRoot, req.Path)
	if err != nil {
		return ErrorResult(err), nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrorResult(fmt.Errorf("%w: %s", ErrFileMissing, rel)), nil
		}
		return ErrorResult(err), nil
	}
	content := string(data)

	count := strings.Count(content, req.OldString)
	switch {
	case count == 0:
		return ErrorResult(&EditError{Path: rel, Reason: "old_string not found"}), nil
	case count > 1 && !req.ReplaceAll:
		return ErrorResult(&EditError{
			Path:   rel,
			Reason: fmt.Sprintf("old_string occurs %d times, pass replace_all or a longer unique string", count),
		}), nil
	}

	updated := strings.Replace(content, req.OldString, req.NewString, -1)
	if !req.ReplaceAll {
		updated = strings.Replace(content, req.OldString, req.NewString, 1)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return ErrorResult(err), nil
	}
	if err := os.WriteFile(abs, []byte(updated), info.Mode().Perm()); err != nil {
		return ErrorResult(err), nil
	}

	replaced := 1
	if req.ReplaceAll {
		replaced = count
	}
	return &Result{Content: fmt.Sprintf("Replaced %d occurrence(s) in %s", replaced, rel)}, nil
}
