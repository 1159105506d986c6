package providers

import (
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/synapseflow-ai/synapse/internal/llm"
)

// toMessageContent converts a completion request into the langchaingo
// message sequence: optional system instruction followed by the prompt.
func toMessageContent(req llm.CompletionRequest) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		messages = append(messages, llms.MessageContent{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(req.System)},
		})
	}
	messages = append(messages, llms.MessageContent{
		Role:  schema.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(req.Prompt)},
	})
	return messages
}

// buildCallOptions converts request parameters to langchaingo call options.
func buildCallOptions(req llm.CompletionRequest) []llms.CallOption {
	callOpts := make([]llms.CallOption, 0, 3)
	if req.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(req.Temperature))
	}
	if req.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.Model != "" {
		callOpts = append(callOpts, llms.WithModel(req.Model))
	}
	return callOpts
}

// fromContentResponse converts a langchaingo response into the engine's
// completion response, pulling token usage out of GenerationInfo when
// the provider reports it.
func fromContentResponse(resp *llms.ContentResponse, model string) *llm.CompletionResponse {
	out := &llm.CompletionResponse{Model: model}
	if resp == nil || len(resp.Choices) == 0 {
		return out
	}

	choice := resp.Choices[0]
	out.Text = choice.Content

	if choice.GenerationInfo != nil {
		out.Usage = llm.TokenUsage{
			PromptTokens:     intFromInfo(choice.GenerationInfo, "PromptTokens", "input_tokens"),
			CompletionTokens: intFromInfo(choice.GenerationInfo, "CompletionTokens", "output_tokens"),
			TotalTokens:      intFromInfo(choice.GenerationInfo, "TotalTokens", "total_tokens"),
		}
		if out.Usage.TotalTokens == 0 {
			out.Usage.TotalTokens = out.Usage.PromptTokens + out.Usage.CompletionTokens
		}
	}
	return out
}

// intFromInfo reads the first present key from a GenerationInfo map.
// Providers disagree on key naming, hence the alternates.
func intFromInfo(info map[string]any, keys ...string) int {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
