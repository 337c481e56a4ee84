package executor

import (
	"errors"
	"fmt"
)

// ErrEmptyCommand is returned for a blank command string.
var ErrEmptyCommand = errors.New("empty command")

// ErrTimeout is returned when a command exceeds its timeout. The process
// group is killed before this is raised.
var ErrTimeout = errors.New("command timeout")

// ParseError is returned when the command text cannot be split into words.
type ParseError struct {
	Command string
	Cause   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid command syntax: %v", e.Cause)
}
func (e *ParseError) Unwrap() error { return e.Cause }

// DisallowedError is returned for executables outside the allowlist that are
// not recognized shell builtins.
type DisallowedError struct {
	Executable string
}

func (e *DisallowedError) Error() string {
	return fmt.Sprintf("executable %q is not allowed", e.Executable)
}

// PathError is returned when the cd builtin targets a missing or non-directory
// path.
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Path)
}
