package executor

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// safeVars are the only host environment variables forwarded to subprocesses.
// Provider API keys and other ambient secrets are deliberately absent.
var safeVars = []string{
	"PATH", "HOME", "USER", "SHELL", "LANG", "LC_ALL", "TZ", "TMPDIR",
	"XDG_CONFIG_HOME", "XDG_CACHE_HOME", "XDG_DATA_HOME",
}

// secureDefaults force non-interactive behavior in child processes.
var secureDefaults = map[string]string{
	"CI":                      "true",
	"NONINTERACTIVE":          "1",
	"NO_COLOR":                "1",
	"TERM":                    "dumb",
	"PAGER":                   "cat",
	"GIT_PAGER":               "cat",
	"EDITOR":                  "cat",
	"VISUAL":                  "cat",
	"PYTHONUNBUFFERED":        "1",
	"PYTHONDONTWRITEBYTECODE": "1",
}

// SafeEnv builds the minimal subprocess environment: allowlisted host
// variables plus secure defaults plus the caller's extra variables. The
// ambient process environment is consulted only for the allowlisted names.
func SafeEnv(extra map[string]string) []string {
	env := make(map[string]string, len(safeVars)+len(secureDefaults)+len(extra))

	for _, key := range safeVars {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	for k, v := range secureDefaults {
		env[k] = v
	}
	for k, v := range extra {
		env[k] = v
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%s", k, env[k]))
	}
	return out
}

// decodeOutput converts raw subprocess output to valid UTF-8, replacing
// undecodable bytes.
func decodeOutput(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
