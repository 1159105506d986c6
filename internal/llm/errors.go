package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/synapseflow-ai/synapse/internal/types"
)

// Completion error codes follow the engine's namespaced error pattern.
const (
	ErrProviderNotFound     types.ErrorCode = "LLM_PROVIDER_NOT_FOUND"
	ErrProviderInitFailed   types.ErrorCode = "LLM_PROVIDER_INIT_FAILED"
	ErrProviderUnauthorized types.ErrorCode = "LLM_PROVIDER_UNAUTHORIZED"
	ErrProviderRateLimited  types.ErrorCode = "LLM_PROVIDER_RATE_LIMITED"
	ErrInvalidRequest       types.ErrorCode = "LLM_INVALID_REQUEST"
	ErrCompletionFailed     types.ErrorCode = "LLM_COMPLETION_FAILED"
	ErrContextCanceled      types.ErrorCode = "LLM_CONTEXT_CANCELED"
	ErrNetworkTimeout       types.ErrorCode = "LLM_NETWORK_TIMEOUT"
)

// NewAuthError reports missing or rejected provider credentials.
func NewAuthError(provider string, cause error) *types.SynapseError {
	return types.WrapError(ErrProviderUnauthorized, "provider "+provider+" rejected credentials or none were supplied", cause)
}

// NewInvalidRequestError reports a malformed completion request.
func NewInvalidRequestError(message string) *types.SynapseError {
	return types.NewError(ErrInvalidRequest, message)
}

// TranslateError maps a provider SDK error onto the engine's structured
// errors, classifying rate limits and timeouts as retryable.
func TranslateError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return types.WrapError(ErrContextCanceled, "completion canceled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewRetryableError(ErrNetworkTimeout, "completion timed out", err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return types.NewRetryableError(ErrProviderRateLimited, "provider "+provider+" rate limited the request", err)
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "401") || strings.Contains(msg, "api key"):
		return NewAuthError(provider, err)
	default:
		return types.WrapError(ErrCompletionFailed, "provider "+provider+" completion failed", err)
	}
}

// IsRetryable reports whether an error is transient and the request may
// succeed on retry.
func IsRetryable(err error) bool {
	var se *types.SynapseError
	if !errors.As(err, &se) {
		return false
	}
	return se.Retryable
}
