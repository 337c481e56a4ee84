package tool

import (
	"path/filepath"
	"strings"
)

// resolvePath resolves a model-supplied path against the workspace root and
// enforces the workspace boundary. It returns the absolute path and the
// forward-slash relative path.
func resolvePath(workspaceRoot, path string) (abs string, rel string, err error) {
	if path == "" {
		path = "."
	}

	if filepath.IsAbs(path) {
		abs = filepath.Clean(path)
	} else {
		abs = filepath.Clean(filepath.Join(workspaceRoot, path))
	}

	if abs != workspaceRoot && !strings.HasPrefix(abs, workspaceRoot+string(filepath.Separator)) {
		return "", "", ErrOutsideWorkspace
	}

	rel, err = filepath.Rel(workspaceRoot, abs)
	if err != nil {
		return "", "", ErrOutsideWorkspace
	}
	if rel == "." {
		rel = ""
	}
	return abs, filepath.ToSlash(rel), nil
}
