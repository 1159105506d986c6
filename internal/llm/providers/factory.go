package providers

import (
	"fmt"

	"github.com/synapseflow-ai/synapse/internal/llm"
	"github.com/synapseflow-ai/synapse/internal/types"
)

// NewProvider creates a completion service based on the configuration.
func NewProvider(cfg llm.ProviderConfig) (llm.CompletionService, error) {
	switch cfg.Type {
	case llm.ProviderOpenAI:
		return NewOpenAIProvider(cfg)

	case llm.ProviderAnthropic:
		return NewAnthropicProvider(cfg)

	case llm.ProviderOllama:
		return NewOllamaProvider(cfg)

	case llm.ProviderMock:
		return NewMockProvider([]string{"Mock response"}), nil

	default:
		return nil, types.NewErrorf(llm.ErrProviderNotFound, "unknown provider type: %s", cfg.Type)
	}
}

// MustProvider is a convenience for wiring code paths where a bad
// provider config is a programming error.
func MustProvider(cfg llm.ProviderConfig) llm.CompletionService {
	p, err := NewProvider(cfg)
	if err != nil {
		panic(fmt.Sprintf("llm provider init: %v", err))
	}
	return p
}
