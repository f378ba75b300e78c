package errors

import (
	"errors"
	"fmt"
)

var (
	ErrParse          = errors.New("parse error")
	ErrValidation     = errors.New("validation error")
	ErrWrite          = errors.New("write error")
	ErrPrecondition   = errors.New("precondition failed")
	ErrNoCandidates   = errors.New("no candidates")
	ErrRebuildAborted = errors.New("rebuild aborted")
	ErrNotFound       = errors.New("not found")
)

// Process exit codes reported by the CLI.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitPrecondition = 2
	ExitValidation   = 3
	ExitWrite        = 4
)

// AppError wraps a sentinel with a message and the process exit code it maps to.
type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

// Error formats the sentinel followed by the message.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

// Unwrap returns the sentinel so errors.Is matches it.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New builds an AppError for sentinel.
func New(sentinel error, exitCode int, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCode,
	}
}

// Newf is New with a formatted message.
func Newf(sentinel error, exitCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCode,
	}
}

// ExitCode maps err to the exit status the CLI should terminate with.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.ExitCode != 0 {
		return appErr.ExitCode
	}

	switch {
	case errors.Is(err, ErrPrecondition):
		return ExitPrecondition
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNoCandidates):
		return ExitValidation
	case errors.Is(err, ErrWrite):
		return ExitWrite
	default:
		return ExitFailure
	}
}
