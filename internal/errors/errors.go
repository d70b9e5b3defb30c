package errors

import (
	"errors"
	"fmt"
)

// Error is the structured error type for RepoWhisper.
// It carries a stable code plus context for logging and user presentation.
type Error struct {
	// Code is the unique error code (e.g., "ERR_401_INVALID_INPUT").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with coded errors.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Newf creates a new Error with a formatted message and no cause.
func Newf(code string, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates an Error from an existing error.
// The error's message becomes the Error message. Returns nil for a nil error.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// InvalidInput creates a validation error for bad caller input.
func InvalidInput(message string, cause error) *Error {
	return New(ErrCodeInvalidInput, message, cause)
}

// Internal creates an internal error.
func Internal(message string, cause error) *Error {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error chain contains a coded error with Retryable set.
func IsRetryable(err error) bool {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Retryable
	}
	return false
}

// CodeOf returns the code of the first coded error in the chain,
// or "" if the chain has none.
func CodeOf(err error) string {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}
