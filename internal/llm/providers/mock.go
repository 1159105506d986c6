package providers

import (
	"context"
	"sync"

	"github.com/synapseflow-ai/synapse/internal/llm"
	"github.com/synapseflow-ai/synapse/internal/types"
)

// MockCall records one request made to the mock provider.
type MockCall struct {
	Request llm.CompletionRequest
}

// MockProvider implements CompletionService for tests. It replays the
// configured responses in order (repeating the last one) and records
// every request it receives.
type MockProvider struct {
	mu            sync.RWMutex
	responses     []string
	responseIndex int
	calls         []MockCall
	err           error
}

// NewMockProvider creates a mock provider replaying the given responses.
func NewMockProvider(responses []string) *MockProvider {
	return &MockProvider{
		responses: responses,
		calls:     make([]MockCall, 0),
	}
}

// FailWith makes every subsequent Complete call return err.
func (p *MockProvider) FailWith(err error) *MockProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
	return p
}

// Name returns the provider name
func (p *MockProvider) Name() string {
	return "mock"
}

// Complete records the request and replays the next canned response.
func (p *MockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, MockCall{Request: req})

	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return nil, types.NewError(llm.ErrCompletionFailed, "mock provider has no responses configured")
	}

	text := p.responses[p.responseIndex]
	if p.responseIndex < len(p.responses)-1 {
		p.responseIndex++
	}

	return &llm.CompletionResponse{
		Text:  text,
		Model: "mock-model",
		Usage: llm.TokenUsage{
			PromptTokens:     len(req.Prompt) / 4,
			CompletionTokens: len(text) / 4,
			TotalTokens:      (len(req.Prompt) + len(text)) / 4,
		},
	}, nil
}

// Calls returns a copy of all recorded calls.
func (p *MockProvider) Calls() []MockCall {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]MockCall, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallCount returns the number of recorded calls.
func (p *MockProvider) CallCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.calls)
}

// Reset clears recorded calls and rewinds the response sequence.
func (p *MockProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = p.calls[:0]
	p.responseIndex = 0
}
