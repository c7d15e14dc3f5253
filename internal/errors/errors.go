package errors

import (
	"errors"
	"fmt"
)

// Error type constants
const (
	ValidationError    = "VALIDATION_ERROR"
	PreconditionFailed = "PRECONDITION_FAILED"
	CommandFailed      = "COMMAND_FAILED"
	Timeout            = "TIMEOUT"
)

// RunError is a structured error naming the entity that failed.
type RunError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Step    string `json:"step,omitempty"`
	Site    string `json:"site,omitempty"`
	Hint    string `json:"hint,omitempty"`
	Cause   error  `json:"-"`
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Message)
	if e.Site != "" {
		msg = fmt.Sprintf("[%s] site %s: %s", e.Type, e.Site, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RunError) Unwrap() error {
	return e.Cause
}

func NewValidationError(msg, hint string) *RunError {
	return &RunError{Type: ValidationError, Message: msg, Hint: hint}
}

// Validationf builds a validation error from a format string.
func Validationf(format string, args ...any) *RunError {
	return &RunError{Type: ValidationError, Message: fmt.Sprintf(format, args...)}
}

func NewTimeoutError(msg string) *RunError {
	return &RunError{Type: Timeout, Message: msg}
}

func NewCommandError(command string, exitCode int, stderr string) *RunError {
	return &RunError{
		Type:    CommandFailed,
		Message: fmt.Sprintf("command %q exited with code %d", command, exitCode),
		Hint:    stderr,
	}
}

func NewPreconditionError(msg, hint string) *RunError {
	return &RunError{Type: PreconditionFailed, Message: msg, Hint: hint}
}

// TypeOf returns the RunError type of err, or "" if err carries none.
func TypeOf(err error) string {
	var re *RunError
	if errors.As(err, &re) {
		return re.Type
	}
	return ""
}

func IsValidation(err error) bool    { return TypeOf(err) == ValidationError }
func IsTimeout(err error) bool       { return TypeOf(err) == Timeout }
func IsCommandFailed(err error) bool { return TypeOf(err) == CommandFailed }
