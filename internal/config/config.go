package config

import (
	"time"
)

// Config is the root configuration for Synapse.
type Config struct {
	Core      CoreConfig      `mapstructure:"core" yaml:"core" validate:"required"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Retrieval RetrievalConfig `mapstructure:"retrieval" yaml:"retrieval"`
	WebSearch WebSearchConfig `mapstructure:"websearch" yaml:"websearch"`
	Tracing   TracingConfig   `mapstructure:"tracing" yaml:"tracing"`
}

// CoreConfig contains core engine settings.
type CoreConfig struct {
	// NodeTimeout bounds each node that does not declare its own timeout.
	NodeTimeout time.Duration `mapstructure:"node_timeout" yaml:"node_timeout"`

	// RunTimeout bounds a whole run. Zero means unbounded.
	RunTimeout time.Duration `mapstructure:"run_timeout" yaml:"run_timeout"`

	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=json text"`
}

// LLMConfig contains completion provider configuration.
type LLMConfig struct {
	// Provider selects the completion backend.
	Provider string `mapstructure:"provider" yaml:"provider" validate:"omitempty,oneof=openai anthropic ollama mock"`

	// APIKey supports ${ENV_VAR} interpolation so keys stay out of files.
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`

	BaseURL      string  `mapstructure:"base_url" yaml:"base_url,omitempty" validate:"omitempty,url"`
	DefaultModel string  `mapstructure:"default_model" yaml:"default_model,omitempty"`
	Temperature  float64 `mapstructure:"temperature" yaml:"temperature" validate:"min=0,max=2"`
	MaxTokens    int     `mapstructure:"max_tokens" yaml:"max_tokens" validate:"min=0"`

	Cache LLMCacheConfig `mapstructure:"cache" yaml:"cache"`
}

// LLMCacheConfig contains the Redis completion cache settings.
type LLMCacheConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Addr    string        `mapstructure:"addr" yaml:"addr,omitempty"`
	DB      int           `mapstructure:"db" yaml:"db" validate:"min=0"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// RetrievalConfig contains vector retrieval settings.
type RetrievalConfig struct {
	// DSN is the Postgres connection string for the pgvector store.
	// Empty means the in-memory store.
	DSN string `mapstructure:"dsn" yaml:"dsn,omitempty"`

	Table       string `mapstructure:"table" yaml:"table,omitempty"`
	DefaultTopK int    `mapstructure:"default_top_k" yaml:"default_top_k" validate:"min=0"`
}

// WebSearchConfig contains web search settings.
type WebSearchConfig struct {
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint,omitempty" validate:"omitempty,url"`
	APIKey      string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Provider    string `mapstructure:"provider" yaml:"provider,omitempty"`
	ResultCount int    `mapstructure:"result_count" yaml:"result_count" validate:"min=0"`
}

// TracingConfig contains distributed tracing configuration. When
// enabled, runs and nodes become spans on the process tracer provider.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}
