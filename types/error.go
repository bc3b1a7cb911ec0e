package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Orchestration error codes
const (
	ErrPoolCapacity      ErrorCode = "POOL_CAPACITY"
	ErrRoleNotFound      ErrorCode = "ROLE_NOT_FOUND"
	ErrWorkerNotFound    ErrorCode = "WORKER_NOT_FOUND"
	ErrTaskNotFound      ErrorCode = "TASK_NOT_FOUND"
	ErrInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrTimeout           ErrorCode = "TIMEOUT"
	ErrRetryExhausted    ErrorCode = "RETRY_EXHAUSTED"
	ErrPlanningFailed    ErrorCode = "PLANNING_FAILED"
)

// Collaborator error codes
const (
	ErrBackendUnavailable   ErrorCode = "BACKEND_UNAVAILABLE"
	ErrRetrievalUnavailable ErrorCode = "RETRIEVAL_UNAVAILABLE"
	ErrAdapterActivation    ErrorCode = "ADAPTER_ACTIVATION"
)

// HTTP-layer error codes
const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrRateLimited    ErrorCode = "RATE_LIMITED"
	ErrInternalError  ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewCapacityError creates a pool-capacity error for the given limit.
func NewCapacityError(max int) *Error {
	return &Error{
		Code:    ErrPoolCapacity,
		Message: fmt.Sprintf("maximum workers (%d) reached", max),
	}
}

// NewRoleNotFoundError creates a role-not-found error.
func NewRoleNotFoundError(name string) *Error {
	return &Error{
		Code:    ErrRoleNotFound,
		Message: fmt.Sprintf("role not found: %s", name),
	}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
