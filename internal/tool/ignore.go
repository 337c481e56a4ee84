package tool

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// ignoreMatcher filters directory listings through the workspace .gitignore.
type ignoreMatcher struct {
	matcher gitignore.Matcher
}

// newIgnoreMatcher loads .gitignore from the workspace root. A missing file
// yields a matcher that never ignores.
func newIgnoreMatcher(workspaceRoot string) *ignoreMatcher {
	data, err := os.ReadFile(filepath.Join(workspaceRoot, ".gitignore"))
	if err != nil {
		return &ignoreMatcher{}
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return &ignoreMatcher{matcher: gitignore.NewMatcher(patterns)}
}

// ShouldIgnore checks a workspace-relative path against the loaded patterns.
func (m *ignoreMatcher) ShouldIgnore(relativePath string, isDir bool) bool {
	if m.matcher == nil {
		return false
	}
	return m.matcher.Match(splitPathSegments(relativePath), isDir)
}

func splitPathSegments(path string) []string {
	var segments []string
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." {
			segments = append(segments, part)
		}
	}
	return segments
}
