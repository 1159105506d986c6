package types

import (
	"errors"
	"fmt"
)

// ErrorCode is a namespaced error code for Synapse engine errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
	CONFIG_NOT_FOUND         ErrorCode = "CONFIG_NOT_FOUND"
)

// Retrieval error codes
const (
	RETRIEVAL_STORE_UNAVAILABLE ErrorCode = "RETRIEVAL_STORE_UNAVAILABLE"
	RETRIEVAL_QUERY_FAILED      ErrorCode = "RETRIEVAL_QUERY_FAILED"
	RETRIEVAL_EMBEDDING_FAILED  ErrorCode = "RETRIEVAL_EMBEDDING_FAILED"
)

// Web search error codes
const (
	SEARCH_REQUEST_FAILED  ErrorCode = "SEARCH_REQUEST_FAILED"
	SEARCH_BAD_RESPONSE    ErrorCode = "SEARCH_BAD_RESPONSE"
	SEARCH_PROVIDER_ERROR  ErrorCode = "SEARCH_PROVIDER_ERROR"
	SEARCH_INVALID_REQUEST ErrorCode = "SEARCH_INVALID_REQUEST"
)

// SynapseError is a structured error with a code, message, and optional
// cause. Retryable marks transient failures so callers can implement
// retry logic without string matching.
type SynapseError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error formats as "[CODE] message" or "[CODE] message: cause".
func (e *SynapseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/errors.As chains.
func (e *SynapseError) Unwrap() error {
	return e.Cause
}

// Is matches target by error code.
func (e *SynapseError) Is(target error) bool {
	var se *SynapseError
	if errors.As(target, &se) {
		return e.Code == se.Code
	}
	return false
}

// NewError creates a non-retryable SynapseError.
func NewError(code ErrorCode, message string) *SynapseError {
	return &SynapseError{Code: code, Message: message}
}

// NewErrorf creates a non-retryable SynapseError with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *SynapseError {
	return &SynapseError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates a SynapseError wrapping cause.
func WrapError(code ErrorCode, message string, cause error) *SynapseError {
	return &SynapseError{Code: code, Message: message, Cause: cause}
}

// NewRetryableError creates a SynapseError marked retryable.
func NewRetryableError(code ErrorCode, message string, cause error) *SynapseError {
	return &SynapseError{Code: code, Message: message, Retryable: true, Cause: cause}
}
