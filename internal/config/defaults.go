package config

import "time"

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			NodeTimeout: 60 * time.Second,
			RunTimeout:  10 * time.Minute,
			Debug:       false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Temperature: 0.7,
			MaxTokens:   1024,
			Cache: LLMCacheConfig{
				Enabled: false,
				Addr:    "localhost:6379",
				TTL:     time.Hour,
			},
		},
		Retrieval: RetrievalConfig{
			Table:       "documents",
			DefaultTopK: 5,
		},
		WebSearch: WebSearchConfig{
			ResultCount: 5,
		},
		Tracing: TracingConfig{
			Enabled: false,
		},
	}
}
