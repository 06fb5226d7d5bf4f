// Package llmcache memoizes model calls in Redis. Identical prompts return
// the cached completion instead of hitting the provider, which makes repeated
// analysis of the same text cheap and deterministic.
package llmcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/textflow/log"
)

// Options configuration for the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "textflow:llm:"
	TTL      time.Duration // Expiration for cached completions, default 0 (no expiration)
}

// Model wraps an llms.Model with a Redis-backed completion cache. Only plain
// text responses are cached; calls carrying tool invocations or multiple
// choices bypass the cache.
type Model struct {
	inner  llms.Model
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ llms.Model = (*Model)(nil)

// New creates a caching model with its own Redis client.
func New(inner llms.Model, opts Options) *Model {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewWithClient(inner, client, opts)
}

// NewWithClient creates a caching model on an existing Redis client.
func NewWithClient(inner llms.Model, client redis.UniversalClient, opts Options) *Model {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "textflow:llm:"
	}
	return &Model{
		inner:  inner,
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

// GenerateContent implements llms.Model. A cache hit returns the stored
// completion; a miss calls the wrapped model and stores its answer. Redis
// failures degrade to uncached calls.
func (m *Model) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	key, ok := m.cacheKey(messages)
	if !ok {
		return m.inner.GenerateContent(ctx, messages, options...)
	}

	if cached, err := m.client.Get(ctx, key).Result(); err == nil {
		log.Debug("llm cache hit for %s", key)
		return &llms.ContentResponse{
			Choices: []*llms.ContentChoice{{Content: cached}},
		}, nil
	} else if !errors.Is(err, redis.Nil) {
		log.Warn("llm cache read failed: %v", err)
	}

	resp, err := m.inner.GenerateContent(ctx, messages, options...)
	if err != nil {
		return nil, err
	}

	if text, cacheable := singleTextChoice(resp); cacheable {
		if err := m.client.Set(ctx, key, text, m.ttl).Err(); err != nil {
			log.Warn("llm cache write failed: %v", err)
		}
	}
	return resp, nil
}

// Call implements the legacy single-prompt interface.
func (m *Model) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// cacheKey hashes the full message content. Non-text parts make the call
// uncacheable.
func (m *Model) cacheKey(messages []llms.MessageContent) (string, bool) {
	type keyedPart struct {
		Role string `json:"role"`
		Text string `json:"text"`
	}
	parts := make([]keyedPart, 0, len(messages))
	for _, msg := range messages {
		for _, part := range msg.Parts {
			tc, ok := part.(llms.TextContent)
			if !ok {
				return "", false
			}
			parts = append(parts, keyedPart{Role: string(msg.Role), Text: tc.Text})
		}
	}

	data, err := json.Marshal(parts)
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s%s", m.prefix, hex.EncodeToString(sum[:])), true
}

func singleTextChoice(resp *llms.ContentResponse) (string, bool) {
	if resp == nil || len(resp.Choices) != 1 {
		return "", false
	}
	choice := resp.Choices[0]
	if choice.Content == "" || len(choice.ToolCalls) > 0 {
		return "", false
	}
	return choice.Content, true
}
