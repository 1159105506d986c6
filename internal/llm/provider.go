package llm

import (
	"context"
	"fmt"
)

// CompletionService is the model-completion contract the workflow engine
// calls into. Implementations wrap concrete providers (OpenAI, Anthropic,
// Ollama) or decorate another service (caching).
type CompletionService interface {
	// Name returns the provider name (e.g. "openai", "anthropic", "mock").
	Name() string

	// Complete sends a completion request and blocks until the full
	// response is available.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ProviderType identifies a concrete completion provider.
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOllama    ProviderType = "ollama"
	ProviderMock      ProviderType = "mock"
)

// ProviderConfig configures a concrete provider.
type ProviderConfig struct {
	Type         ProviderType `mapstructure:"type" yaml:"type"`
	APIKey       string       `mapstructure:"api_key" yaml:"api_key"`
	BaseURL      string       `mapstructure:"base_url" yaml:"base_url"`
	DefaultModel string       `mapstructure:"default_model" yaml:"default_model"`
}

// CompletionRequest carries one prompt to a completion provider.
type CompletionRequest struct {
	// Prompt is the fully-interpolated user prompt.
	Prompt string `json:"prompt"`

	// System optionally sets a system instruction ahead of the prompt.
	System string `json:"system,omitempty"`

	// Model selects the model; empty means the provider's default.
	Model string `json:"model,omitempty"`

	// Temperature controls sampling randomness; zero means provider default.
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens caps the generated output; zero means provider default.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// Validate checks the request before it is sent.
func (r CompletionRequest) Validate() error {
	if r.Prompt == "" {
		return NewInvalidRequestError("completion request must have a prompt")
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		return NewInvalidRequestError(fmt.Sprintf("temperature must be in [0, 2], got %v", r.Temperature))
	}
	if r.MaxTokens < 0 {
		return NewInvalidRequestError(fmt.Sprintf("max_tokens must be non-negative, got %d", r.MaxTokens))
	}
	return nil
}

// TokenUsage reports token accounting for one completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is the structured response handed back to the engine.
type CompletionResponse struct {
	// Text is the generated completion.
	Text string `json:"text"`

	// Model is the model that produced the completion.
	Model string `json:"model,omitempty"`

	// Usage holds token accounting when the provider reports it.
	Usage TokenUsage `json:"usage"`
}
