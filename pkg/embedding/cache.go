package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/Zereker/docstore/pkg/log"
)

const defaultCacheTTL = 24 * time.Hour

// CachedProvider wraps a Provider with a Redis cache keyed by model and
// content hash. Cache failures degrade to the inner provider; they never
// fail the embedding call.
type CachedProvider struct {
	logger *slog.Logger
	inner  Provider
	client *redis.Client
	model  string
	ttl    time.Duration
}

// NewCachedProvider wraps inner with a Redis cache.
func NewCachedProvider(inner Provider, client *redis.Client, model string, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedProvider{
		logger: log.Logger("embedding.cache"),
		inner:  inner,
		client: client,
		model:  model,
		ttl:    ttl,
	}
}

// Embed returns the cached embedding for text, or computes and caches it.
func (c *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	if vector, ok := c.get(ctx, key); ok {
		return vector, nil
	}

	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.set(ctx, key, vector)
	return vector, nil
}

// EmbedBatch resolves cached texts and embeds only the misses, preserving
// input order.
func (c *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	var missTexts []string
	var missIndexes []int
	for i, text := range texts {
		if vector, ok := c.get(ctx, c.key(text)); ok {
			vectors[i] = vector
			continue
		}
		missTexts = append(missTexts, text)
		missIndexes = append(missIndexes, i)
	}

	if len(missTexts) == 0 {
		return vectors, nil
	}

	computed, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(computed) != len(missTexts) {
		return nil, errors.Errorf("expected %d embeddings, got %d", len(missTexts), len(computed))
	}

	for j, vector := range computed {
		i := missIndexes[j]
		vectors[i] = vector
		c.set(ctx, c.key(texts[i]), vector)
	}

	return vectors, nil
}

func (c *CachedProvider) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "docstore:emb:" + c.model + ":" + hex.EncodeToString(sum[:])
}

func (c *CachedProvider) get(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache get failed", "error", err)
		}
		return nil, false
	}

	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil {
		c.logger.Warn("cache entry corrupt", "key", key, "error", err)
		return nil, false
	}

	return vector, true
}

func (c *CachedProvider) set(ctx context.Context, key string, vector []float32) {
	data, err := json.Marshal(vector)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", "error", err)
	}
}
