package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeConfig            ErrorType = "config"
	ErrorTypeCheckpointCorrupt ErrorType = "checkpoint_corrupt"
	ErrorTypeCheckpointWrite   ErrorType = "checkpoint_write"
	ErrorTypeInvalidSource     ErrorType = "invalid_source"
	ErrorTypeParse             ErrorType = "parse"
	ErrorTypeNetwork           ErrorType = "network"
	ErrorTypeRateLimit         ErrorType = "rate_limit"
	ErrorTypeAuth              ErrorType = "auth"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeServer            ErrorType = "server_error"
	ErrorTypeUnknown           ErrorType = "unknown"
)

// Error represents a loader error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int // HTTP status code when the error came from the server, 0 otherwise
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Code != 0:
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s error: %s", e.Type, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given type
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Newf creates an error of the given type with a formatted message
func Newf(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given type wrapping an underlying cause
func Wrap(err error, t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

// IsType checks if an error (or any error it wraps) has the given type
func IsType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServer:
		return true
	case ErrorTypeAuth, ErrorTypeNotFound, ErrorTypeParse, ErrorTypeConfig:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504: // Server errors
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500 // Retry all 5xx errors
	}
}
