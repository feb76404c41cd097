package shell

import (
	"errors"
	"fmt"
)

// ErrInterrupted is returned when a line is abandoned due to SIGINT.
var ErrInterrupted = errors.New("interrupted")

// ParseError is a malformed assignment, substitution or pipeline.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string {
	return "syntax error: " + e.Msg
}

func parseErrorf(format string, a ...interface{}) error {
	return &ParseError{Msg: fmt.Sprintf(format, a...)}
}

// RedirectionError is returned when an output redirection target can't be
// opened.
type RedirectionError struct {
	Path string
	Err  error
}

func (e *RedirectionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *RedirectionError) Unwrap() error {
	return e.Err
}

// SpawnError is a failure to acquire the pipes or processes for a stage.
type SpawnError struct {
	Op  string
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ExecError is returned when a program can't be found.
type ExecError struct {
	Name string
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: command not found", e.Name)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// LookupError is an unknown shell or environment variable.
type LookupError struct {
	Kind string
	Name string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}
