package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/WantedChef/chefchat/internal/config"
	"github.com/WantedChef/chefchat/internal/provider/models"
)

// ListDirectoryRequest is the argument shape for the list_directory tool.
type ListDirectoryRequest struct {
	Path string `mapstructure:"path"`
	// Recursive descends into subdirectories.
	Recursive bool `mapstructure:"recursive"`
	// IncludeIgnored disables gitignore filtering.
	IncludeIgnored bool `mapstructure:"include_ignored"`
	Limit          int  `mapstructure:"limit"`
}

type directoryEntry struct {
	relativePath string
	isDir        bool
}

// ListDirectoryTool lists workspace directory contents, filtered through the
// workspace .gitignore.
type ListDirectoryTool struct {
	workspaceRoot string
	config        *config.Config
}

func NewListDirectoryTool(workspaceRoot string, cfg *config.Config) *ListDirectoryTool {
	return &ListDirectoryTool{workspaceRoot: workspaceRoot, config: cfg}
}

func (t *ListDirectoryTool) Name() string { return "list_directory" }

func (t *ListDirectoryTool) Definition() models.ToolDefinition {
	return models.ToolDefinition{
		Name:        "list_directory",
		Description: "List files and directories in the workspace.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Directory path relative to the workspace root. Defaults to the root.",
				},
				"recursive": map[string]any{
					"type":        "boolean",
					"description": "Descend into subdirectories.",
				},
				"include_ignored": map[string]any{
					"type":        "boolean",
					"description": "Include entries matched by .gitignore.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of entries to return.",
				},
			},
		},
	}
}

// Permission is always granted: listing cannot mutate the workspace.
func (t *ListDirectoryTool) Permission(args map[string]any) Permission {
	return PermissionAlways
}

func (t *ListDirectoryTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	var req ListDirectoryRequest
	if err := mapstructure.Decode(args, &req); err != nil {
		return ErrorResult(fmt.Errorf("invalid arguments: %w", err)), nil
	}

	limit := t.config.Tools.DefaultListDirectoryLimit
	if req.Limit > 0 {
		limit = req.Limit
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
	if !info.IsDir() {
		return ErrorResult(fmt.Errorf("%w: %s", ErrNotADirectory, rel)), nil
	}

	var matcher *ignoreMatcher
	if !req.IncludeIgnored {
		matcher = newIgnoreMatcher(t.workspaceRoot)
	}

	entries, err := t.collect(ctx, abs, req.Recursive, matcher)
	if err != nil {
		return ErrorResult(err), nil
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].isDir != entries[j].isDir {
			return entries[i].isDir
		}
		return entries[i].relativePath < entries[j].relativePath
	})

	truncated := false
	if len(entries) > limit {
		entries = entries[:limit]
		truncated = true
	}

	var b strings.Builder
	for _, e := range entries {
		if e.isDir {
			fmt.Fprintf(&b, "%s/\n", e.relativePath)
		} else {
			fmt.Fprintf(&b, "%s\n", e.relativePath)
		}
	}
	if truncated {
		fmt.Fprintf(&b, "[truncated at %d entries]\n", limit)
	}
	if b.Len() == 0 {
		return &Result{Content: "(empty directory)"}, nil
	}
	return &Result{Content: strings.TrimRight(b.String(), "\n")}, nil
}

func (t *ListDirectoryTool) collect(ctx context.Context, dir string, recursive bool, matcher *ignoreMatcher) ([]directoryEntry, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	children, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var entries []directoryEntry
	for _, child := range children {
		childAbs := filepath.Join(dir, child.Name())
		childRel, err := filepath.Rel(t.workspaceRoot, childAbs)
		if err != nil {
			return nil, err
		}
		childRel = filepath.ToSlash(childRel)

		if child.Name() == ".git" {
			continue
		}
		if matcher != nil && matcher.ShouldIgnore(childRel, child.IsDir()) {
			continue
		}

		entries = append(entries, directoryEntry{relativePath: childRel, isDir: child.IsDir()})

		if recursive && child.IsDir() {
			sub, err := t.collect(ctx, childAbs, true, matcher)
			if err != nil {
				return nil, err
			}
			entries = append(entries, sub...)
		}
	}
	return entries, nil
}
