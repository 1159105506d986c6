package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// CacheConfig configures the Redis completion cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Addr    string        `mapstructure:"addr" yaml:"addr"`
	DB      int           `mapstructure:"db" yaml:"db"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// CachedCompletionService decorates a CompletionService with a Redis
// response cache. Identical requests (model, prompt, system,
// temperature, max tokens) within the TTL are served from the cache
// without hitting the provider. Cache failures fall through to the
// provider; a broken cache must not fail completions.
type CachedCompletionService struct {
	inner  CompletionService
	client *redis.Client
	ttl    time.Duration
}

// NewCachedCompletionService wraps inner with a Redis cache.
func NewCachedCompletionService(inner CompletionService, cfg CacheConfig) *CachedCompletionService {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedCompletionService{
		inner: inner,
		client: redis.NewClient(&redis.Options{
			Addr: cfg.Addr,
			DB:   cfg.DB,
		}),
		ttl: ttl,
	}
}

// Name returns the wrapped provider's name.
func (c *CachedCompletionService) Name() string {
	return c.inner.Name()
}

// Complete serves from the cache when possible, otherwise delegates and
// stores the fresh response.
func (c *CachedCompletionService) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	key := CacheKey(req)

	if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var resp CompletionResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			return &resp, nil
		}
		// Corrupt entry: drop it and fall through to the provider.
		c.client.Del(ctx, key)
	}

	resp, err := c.inner.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err == nil {
		c.client.Set(ctx, key, data, c.ttl)
	}
	return resp, nil
}

// Close releases the Redis connection.
func (c *CachedCompletionService) Close() error {
	return c.client.Close()
}

// CacheKey derives the cache key for a request: a hash over every field
// that affects the completion.
func CacheKey(req CompletionRequest) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%.4f|%d",
		req.Model, req.System, req.Prompt, req.Temperature, req.MaxTokens)))
	return "synapse:llm:" + hex.EncodeToString(sum[:])
}
