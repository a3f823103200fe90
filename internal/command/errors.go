package command

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMetadata is returned by a read run in which no input carried a payload
	ErrNoMetadata = errors.New("no metadata found")
	// ErrUsage marks a malformed invocation; nothing has been processed
	ErrUsage = errors.New("invalid usage")
)

// TemplateError reports an output template that cannot be formatted
type TemplateError struct {
	Path string
	Err  error
}

func (e *TemplateError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid template: %v", e.Err)
	}
	return fmt.Sprintf("invalid template %s: %v", e.Path, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// ExitCode is the process status of a command run
type ExitCode int

const (
	Success            ExitCode = 0
	ExecutionError     ExitCode = 1
	ArgumentParseError ExitCode = 2
	NoMetadataFound    ExitCode = 3
)

// ExitCodeFor maps the result of a command to its exit status
func ExitCodeFor(err error) ExitCode {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrNoMetadata):
		return NoMetadataFound
	case errors.Is(err, ErrUsage):
		return ArgumentParseError
	default:
		return ExecutionError
	}
}
