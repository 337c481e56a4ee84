package tool

import "strings"

// commandClassifier decides the permission for a shell command by splitting
// it into segments and checking each against the configured allow and deny
// lists. Deny wins over allow; substitution disables the allowlist fast path
// because the substituted text cannot be inspected.
type commandClassifier struct {
	allowlist          []string
	denylist           []string
	denylistStandalone []string
}

func newCommandClassifier(allowlist, denylist, denylistStandalone []string) *commandClassifier {
	return &commandClassifier{
		allowlist:          allowlist,
		denylist:           denylist,
		denylistStandalone: denylistStandalone,
	}
}

// segmentSeparators are the shell operators a compound command is split on.
// Each resulting segment is classified on its own.
var segmentSeparators = []string{"&&", "||", ";", "|"}

// splitSegments splits a compound command into its constituent commands. The
// split is textual, so operator characters inside quotes also split; that
// only makes classification stricter.
func splitSegments(command string) []string {
	parts := []string{command}
	for _, sep := range segmentSeparators {
		var next []string
		for _, part := range parts {
			next = append(next, strings.Split(part, sep)...)
		}
		parts = next
	}

	var segments []string
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

func hasSubstitution(command string) bool {
	return strings.Contains(command, "$(") || strings.Contains(command, "`")
}

// matchesPrefix reports whether the segment starts with the entry on a word
// boundary, so "git status" matches "git status --short" but not
// "git statusx".
func matchesPrefix(segment, entry string) bool {
	if !strings.HasPrefix(segment, entry) {
		return false
	}
	rest := segment[len(entry):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

// Classify returns the permission for the command text.
func (c *commandClassifier) Classify(command string) Permission {
	segments := splitSegments(command)
	if len(segments) == 0 {
		return PermissionNever
	}

	for _, segment := range segments {
		for _, entry := range c.denylist {
			if matchesPrefix(segment, entry) || strings.Contains(segment, entry) {
				return PermissionNever
			}
		}
		for _, entry := range c.denylistStandalone {
			if segment == entry {
				return PermissionNever
			}
		}
	}

	if hasSubstitution(command) {
		return PermissionAsk
	}

	for _, segment := range segments {
		allowed := false
		for _, entry := range c.allowlist {
			if matchesPrefix(segment, entry) {
				allowed = true
				break
			}
		}
		if !allowed {
			return PermissionAsk
		}
	}
	return PermissionAlways
}
