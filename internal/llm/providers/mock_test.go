package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapseflow-ai/synapse/internal/llm"
)

func TestMockProvider_ReplaysResponses(t *testing.T) {
	mock := NewMockProvider([]string{"first", "second"})
	ctx := context.Background()

	for _, want := range []string{"first", "second", "second"} {
		resp, err := mock.Complete(ctx, llm.CompletionRequest{Prompt: "hi"})
		require.NoError(t, err)
		assert.Equal(t, want, resp.Text)
	}

	assert.Equal(t, 3, mock.CallCount())
	assert.Equal(t, "mock", mock.Name())
}

func TestMockProvider_RecordsRequests(t *testing.T) {
	mock := NewMockProvider([]string{"ok"})

	req := llm.CompletionRequest{Prompt: "question", System: "system", Model: "m1"}
	_, err := mock.Complete(context.Background(), req)
	require.NoError(t, err)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, req, calls[0].Request)
}

func TestMockProvider_FailWith(t *testing.T) {
	mock := NewMockProvider([]string{"ok"})
	boom := errors.New("boom")
	mock.FailWith(boom)

	_, err := mock.Complete(context.Background(), llm.CompletionRequest{Prompt: "hi"})
	require.ErrorIs(t, err, boom)

	// Failed calls are still recorded.
	assert.Equal(t, 1, mock.CallCount())
}

func TestMockProvider_ValidatesRequests(t *testing.T) {
	mock := NewMockProvider([]string{"ok"})

	_, err := mock.Complete(context.Background(), llm.CompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must have a prompt")
}

func TestMockProvider_HonoursContext(t *testing.T) {
	mock := NewMockProvider([]string{"ok"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mock.Complete(ctx, llm.CompletionRequest{Prompt: "hi"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMockProvider_Reset(t *testing.T) {
	mock := NewMockProvider([]string{"first", "second"})
	ctx := context.Background()

	_, err := mock.Complete(ctx, llm.CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)
	_, err = mock.Complete(ctx, llm.CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)

	mock.Reset()
	assert.Equal(t, 0, mock.CallCount())

	resp, err := mock.Complete(ctx, llm.CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Text)
}

func TestNewProvider(t *testing.T) {
	t.Run("mock", func(t *testing.T) {
		svc, err := NewProvider(llm.ProviderConfig{Type: llm.ProviderMock})
		require.NoError(t, err)
		assert.Equal(t, "mock", svc.Name())
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewProvider(llm.ProviderConfig{Type: "skynet"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown provider type")
	})
}

func TestMustProvider_PanicsOnBadConfig(t *testing.T) {
	assert.Panics(t, func() {
		MustProvider(llm.ProviderConfig{Type: "skynet"})
	})
}
