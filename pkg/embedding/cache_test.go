package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProvider struct {
	vectors [][]float32
}

func (p *staticProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.vectors[0], nil
}

func (p *staticProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return p.vectors, nil
}

// deadRedisClient points at a closed port with short timeouts, so every
// cache operation fails fast and the provider must degrade gracefully.
func deadRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:1",
		DialTimeout:  50 * time.Millisecond,
		ReadTimeout:  50 * time.Millisecond,
		WriteTimeout: 50 * time.Millisecond,
		MaxRetries:   -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCachedProviderDegradesWithoutRedis(t *testing.T) {
	ctx := context.Background()
	inner := &staticProvider{vectors: [][]float32{{1, 0}, {0, 1}}}
	cached := NewCachedProvider(inner, deadRedisClient(t), "test", time.Hour)

	vec, err := cached.Embed(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)

	vectors, err := cached.EmbedBatch(ctx, []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0, 1}, vectors[1])
}

func TestCachedProviderShortBatch(t *testing.T) {
	ctx := context.Background()

	// An inner provider returning too few vectors must be an error, not a
	// panic.
	inner := &staticProvider{vectors: [][]float32{{1, 0}}}
	cached := NewCachedProvider(inner, deadRedisClient(t), "test", time.Hour)

	_, err := cached.EmbedBatch(ctx, []string{"one", "two"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 embeddings")
}
