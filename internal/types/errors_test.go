package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynapseError_Error(t *testing.T) {
	plain := NewError(CONFIG_NOT_FOUND, "no config file")
	assert.Equal(t, "[CONFIG_NOT_FOUND] no config file", plain.Error())

	wrapped := WrapError(CONFIG_PARSE_FAILED, "bad yaml", errors.New("line 3"))
	assert.Equal(t, "[CONFIG_PARSE_FAILED] bad yaml: line 3", wrapped.Error())
}

func TestSynapseError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := WrapError(RETRIEVAL_QUERY_FAILED, "query failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))

	// Wrapping again still reaches the root cause.
	outer := fmt.Errorf("outer: %w", err)
	assert.ErrorIs(t, outer, cause)

	var serr *SynapseError
	require.ErrorAs(t, outer, &serr)
	assert.Equal(t, RETRIEVAL_QUERY_FAILED, serr.Code)
}

func TestSynapseError_IsMatchesByCode(t *testing.T) {
	a := NewError(SEARCH_REQUEST_FAILED, "one")
	b := NewError(SEARCH_REQUEST_FAILED, "different message")
	c := NewError(SEARCH_BAD_RESPONSE, "other code")

	assert.ErrorIs(t, a, b)
	assert.NotErrorIs(t, a, c)
	assert.NotErrorIs(t, a, errors.New("plain"))
}

func TestNewErrorf(t *testing.T) {
	err := NewErrorf(CONFIG_LOAD_FAILED, "cannot read %q", "synapse.yaml")
	assert.Equal(t, `[CONFIG_LOAD_FAILED] cannot read "synapse.yaml"`, err.Error())
	assert.False(t, err.Retryable)
}

func TestNewRetryableError(t *testing.T) {
	err := NewRetryableError(SEARCH_PROVIDER_ERROR, "upstream 503", nil)
	assert.True(t, err.Retryable)
	assert.Nil(t, errors.Unwrap(err))
}
