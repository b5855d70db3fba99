package errors

import (
	"errors"
	"fmt"
)

// WikigraphError is the structured error type for wikigraph.
// It carries enough context for logging and for user presentation.
type WikigraphError struct {
	// Code is the unique error code (e.g., "ERR_501_QUERY_EMPTY").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
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
func (e *WikigraphError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *WikigraphError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a WikigraphError with the same code.
func (e *WikigraphError) Is(target error) bool {
	if t, ok := target.(*WikigraphError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *WikigraphError) WithDetail(key, value string) *WikigraphError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *WikigraphError) WithSuggestion(suggestion string) *WikigraphError {
	e.Suggestion = suggestion
	return e
}

// New creates a new WikigraphError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *WikigraphError {
	return &WikigraphError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a WikigraphError from an existing error, reusing its message.
func Wrap(code string, err error) *WikigraphError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Newf is New with a formatted message and no cause.
func Newf(code string, format string, args ...any) *WikigraphError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// TransportError wraps a failure to reach an external service.
func TransportError(service string, cause error) *WikigraphError {
	return New(ErrCodeTransportFailure, fmt.Sprintf("%s unreachable: %v", service, cause), cause).
		WithDetail("service", service)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *WikigraphError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *WikigraphError {
	return New(ErrCodeInternal, message, cause)
}

// As finds the first WikigraphError in err's chain.
func As(err error) (*WikigraphError, bool) {
	var we *WikigraphError
	if errors.As(err, &we) {
		return we, true
	}
	return nil, false
}

// IsRetryable checks if any WikigraphError in the chain is retryable.
func IsRetryable(err error) bool {
	if we, ok := As(err); ok {
		return we.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if we, ok := As(err); ok {
		return we.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from the chain.
// Returns empty string if no WikigraphError is present.
func GetCode(err error) string {
	if we, ok := As(err); ok {
		return we.Code
	}
	return ""
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code string) bool {
	return errors.Is(err, &WikigraphError{Code: code})
}
