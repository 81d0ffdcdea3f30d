package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input or config
	ErrCatExecution  ErrorCategory = "execution"  // Runtime failure
	ErrCatTimeout    ErrorCategory = "timeout"    // Operation timed out
	ErrCatState      ErrorCategory = "state"      // Persisted state corruption/conflict
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrExecution creates an execution error.
func ErrExecution(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrState creates a state error.
func ErrState(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// ErrConfigParse reports a malformed persisted JSON/YAML document.
// It is fatal at startup.
func ErrConfigParse(path string, cause error) *DomainError {
	return (&DomainError{
		Category:  ErrCatValidation,
		Code:      CodeConfigParse,
		Message:   fmt.Sprintf("cannot parse %s", path),
		Retryable: false,
	}).WithCause(cause).WithDetail("path", path)
}

// ErrFilterInvocation reports a failed topic filter run. The next refresh
// retries implicitly.
func ErrFilterInvocation(cause error) *DomainError {
	return (&DomainError{
		Category:  ErrCatExecution,
		Code:      CodeFilterFailed,
		Message:   "topic filter invocation failed",
		Retryable: true,
	}).WithCause(cause)
}

// ErrLaunch reports a worker that could not be started.
func ErrLaunch(topicID, message string, cause error) *DomainError {
	return (&DomainError{
		Category:  ErrCatExecution,
		Code:      CodeLaunchFailed,
		Message:   message,
		Retryable: false,
	}).WithCause(cause).WithDetail("topic_id", topicID)
}

// ErrProcessTermination reports a failed termination request.
func ErrProcessTermination(topicID string, cause error) *DomainError {
	return (&DomainError{
		Category:  ErrCatExecution,
		Code:      CodeTerminateFailed,
		Message:   fmt.Sprintf("cannot terminate worker for %s", topicID),
		Retryable: false,
	}).WithCause(cause).WithDetail("topic_id", topicID)
}

// ErrUnknownCommand reports operator input that did not parse.
func ErrUnknownCommand(input string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      CodeUnknownCommand,
		Message:   fmt.Sprintf("unrecognized command: %q", input),
		Retryable: false,
	}
}

// ErrTopicNotFound reports a command that named a topic with no task.
func ErrTopicNotFound(topicID string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      CodeTopicNotFound,
		Message:   fmt.Sprintf("topic %s is not in the task list", topicID),
		Retryable: false,
		Details:   map[string]interface{}{"topic_id": topicID},
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// HasCode reports whether err is a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Code == code
	}
	return false
}

// Predefined error codes
const (
	CodeConfigParse       = "CONFIG_PARSE"
	CodeInvalidConfig     = "INVALID_CONFIG"
	CodeFilterFailed      = "FILTER_FAILED"
	CodeLaunchFailed      = "LAUNCH_FAILED"
	CodeTerminateFailed   = "TERMINATE_FAILED"
	CodeUnknownCommand    = "UNKNOWN_COMMAND"
	CodeTopicNotFound     = "TOPIC_NOT_FOUND"
	CodeLockAcquireFailed = "LOCK_ACQUIRE_FAILED"
	CodeLockReleaseFailed = "LOCK_RELEASE_FAILED"
	CodeStateCorrupted    = "STATE_CORRUPTED"
)
