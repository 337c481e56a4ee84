package mode

import (
	"regexp"
	"strings"
)

// writeBashPatterns match shell command text that mutates state: redirection,
// mutating coreutils, in-place editors, package installs and git commands
// that write.
var writeBashPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(^|[^>])>{1,2}\s*[^&\s]`), // redirection to a file, not fd duplication like 2>&1
	regexp.MustCompile(`\brm\s`),
	regexp.MustCompile(`\bmv\s`),
	regexp.MustCompile(`\bcp\s`),
	regexp.MustCompile(`\bmkdir\b`),
	regexp.MustCompile(`\brmdir\b`),
	regexp.MustCompile(`\btouch\b`),
	regexp.MustCompile(`\bln\s`),
	regexp.MustCompile(`\bchmod\b`),
	regexp.MustCompile(`\bchown\b`),
	regexp.MustCompile(`\btee\b`),
	regexp.MustCompile(`\btruncate\b`),
	regexp.MustCompile(`\bdd\b`),
	regexp.MustCompile(`\bsed\s+(-\S*\s+)*-i`),
	regexp.MustCompile(`\bpatch\b`),
	regexp.MustCompile(`\b(npm|pnpm|yarn)\s+(install|add|remove|uninstall)\b`),
	regexp.MustCompile(`\bpip3?\s+(install|uninstall)\b`),
	regexp.MustCompile(`\bgo\s+(install|get)\b`),
}

// safeGitSubcommands never count as writes.
var safeGitSubcommands = map[string]bool{
	"status": true, "log": true, "diff": true, "show": true,
	"branch": true, "blame": true, "grep": true, "remote": true,
}

var gitSubcommandRe = regexp.MustCompile(`\bgit\s+(?:-\S+\s+)*([a-z-]+)`)

// isWriteBashCommand reports whether the command text looks like it mutates
// the filesystem or repository state.
func isWriteBashCommand(command string) bool {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return false
	}

	if m := gitSubcommandRe.FindStringSubmatch(trimmed); m != nil {
		if !safeGitSubcommands[m[1]] {
			return true
		}
	}

	for _, pat := range writeBashPatterns {
		if pat.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// IsWriteOperation detects whether a tool invocation would write. File tools
// are classified by name; the generic bash tool by inspecting its command
// argument.
func IsWriteOperation(toolName string, args map[string]any) bool {
	if writeTools[toolName] {
		return true
	}
	if toolName == "bash" {
		command, _ := args["command"].(string)
		return isWriteBashCommand(command)
	}
	return false
}
