package tool

import (
	"errors"
	"fmt"
)

// ErrOutsideWorkspace is returned for paths that escape the workspace root.
var ErrOutsideWorkspace = errors.New("path is outside the workspace")

// ErrFileMissing is returned when a target file or directory does not exist.
var ErrFileMissing = errors.New("file does not exist")

// ErrFileTooLarge is returned when a file exceeds the configured size limit.
var ErrFileTooLarge = errors.New("file exceeds maximum size")

// ErrNotADirectory is returned when a directory operation targets a file.
var ErrNotADirectory = errors.New("path is not a directory")

// EditError is returned when a string replacement cannot be applied.
type EditError struct {
	Path   string
	Reason string
}

func (e *EditError) Error() string {
	return fmt.Sprintf("cannot edit %s: %s", e.Path, e.Reason)
}

// DuplicateToolError is returned when two tools register under the same name.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}

// UnknownToolError is returned when the model invokes a tool that does not
// exist.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}
