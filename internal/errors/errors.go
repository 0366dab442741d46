package errors

import (
	stderrors "errors"
	"fmt"
)

// FSError is the structured error type for fsindex.
// It carries enough context (path, operation, cause) for callers to log or display.
type FSError struct {
	// Code is the unique error code (e.g., "ERR_301_STORE_FATAL").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Store, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *FSError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *FSError) Unwrap() error {
	return e.Cause
}

// Is matches by code, so errors.Is(err, ErrStoreFatal) works for any
// FSError carrying ERR_301.
func (e *FSError) Is(target error) bool {
	if t, ok := target.(*FSError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *FSError) WithDetail(key, value string) *FSError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *FSError) WithSuggestion(suggestion string) *FSError {
	e.Suggestion = suggestion
	return e
}

// New creates a new FSError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *FSError {
	return &FSError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an FSError from an existing error.
// The error's message becomes the FSError message.
func Wrap(code string, err error) *FSError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// FileError reports a per-entry filesystem failure that is skipped and counted.
func FileError(path, op string, cause error) *FSError {
	return New(ErrCodeFileTransient, op+" failed", cause).
		WithDetail("path", path).
		WithDetail("op", op)
}

// StoreError reports a storage failure that aborts the current run.
func StoreError(op string, cause error) *FSError {
	return New(ErrCodeStoreFatal, op+" failed", cause).WithDetail("op", op)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *FSError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *FSError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if any error in the chain is a retryable FSError.
func IsRetryable(err error) bool {
	var fe *FSError
	if stderrors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var fe *FSError
	if stderrors.As(err, &fe) {
		return fe.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from the first FSError in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var fe *FSError
	if stderrors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// GetCategory extracts the category from the first FSError in the chain.
func GetCategory(err error) Category {
	var fe *FSError
	if stderrors.As(err, &fe) {
		return fe.Category
	}
	return ""
}
