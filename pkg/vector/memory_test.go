package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(content, source string, embedding []float32) map[string]any {
	return map[string]any{
		"content":   content,
		"source":    source,
		"embedding": embedding,
	}
}

func TestMemoryIndexStoreAndGet(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex()

	require.NoError(t, index.Store(ctx, "a", record("hello", "wiki", []float32{1, 0})))

	t.Run("returns a copy", func(t *testing.T) {
		got, err := index.Get(ctx, "a")
		require.NoError(t, err)
		require.NotNil(t, got)

		got["content"] = "mutated"

		again, err := index.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "hello", again["content"])
	})

	t.Run("stored record does not alias caller maps", func(t *testing.T) {
		metadata := map[string]any{"author": "alice"}
		require.NoError(t, index.Store(ctx, "meta", map[string]any{
			"content":   "meta",
			"embedding": []float32{1},
			"metadata":  metadata,
		}))

		metadata["author"] = "mallory"

		got, err := index.Get(ctx, "meta")
		require.NoError(t, err)
		assert.Equal(t, "alice", got["metadata"].(map[string]any)["author"])

		require.NoError(t, index.Delete(ctx, "meta"))
	})

	t.Run("missing id yields nil", func(t *testing.T) {
		got, err := index.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("store replaces", func(t *testing.T) {
		require.NoError(t, index.Store(ctx, "a", record("replaced", "wiki", []float32{0, 1})))

		got, err := index.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "replaced", got["content"])

		count, err := index.Count(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestMemoryIndexSearch(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex()

	require.NoError(t, index.Store(ctx, "x", record("x", "wiki", []float32{1, 0})))
	require.NoError(t, index.Store(ctx, "y", record("y", "blog", []float32{0.9, 0.1})))
	require.NoError(t, index.Store(ctx, "z", record("z", "blog", []float32{0, 1})))

	t.Run("orders by descending score", func(t *testing.T) {
		results, err := index.Search(ctx, SearchQuery{Embedding: []float32{1, 0}, Limit: 10})
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "x", results[0]["content"])
		assert.Equal(t, "y", results[1]["content"])
		assert.Equal(t, "z", results[2]["content"])

		score, ok := results[0][Score].(float64)
		require.True(t, ok)
		assert.InDelta(t, 1.0, score, 1e-9)
	})

	t.Run("honors the limit", func(t *testing.T) {
		results, err := index.Search(ctx, SearchQuery{Embedding: []float32{1, 0}, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("applies filters", func(t *testing.T) {
		results, err := index.Search(ctx, SearchQuery{
			Embedding: []float32{1, 0},
			Filters:   map[string]any{"source": "blog"},
			Limit:     10,
		})
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, hit := range results {
			assert.Equal(t, "blog", hit["source"])
		}
	})

	t.Run("applies the score threshold", func(t *testing.T) {
		results, err := index.Search(ctx, SearchQuery{
			Embedding:      []float32{1, 0},
			ScoreThreshold: 0.8,
			Limit:          10,
		})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "x", results[0]["content"])
		assert.Equal(t, "y", results[1]["content"])
	})

	t.Run("slice-valued fields match without panicking", func(t *testing.T) {
		require.NoError(t, index.Store(ctx, "tagged", map[string]any{
			"content":   "tagged",
			"embedding": []float32{1, 0},
			"metadata":  map[string]any{"tags": []any{"go", "search"}},
		}))

		// Whole-slice equality.
		results, err := index.Search(ctx, SearchQuery{
			Embedding: []float32{1, 0},
			Filters:   map[string]any{"metadata.tags": []any{"go", "search"}},
			Limit:     10,
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "tagged", results[0]["content"])

		// Membership of a scalar filter value.
		results, err = index.Search(ctx, SearchQuery{
			Embedding: []float32{1, 0},
			Filters:   map[string]any{"metadata.tags": "go"},
			Limit:     10,
		})
		require.NoError(t, err)
		require.Len(t, results, 1)

		results, err = index.Search(ctx, SearchQuery{
			Embedding: []float32{1, 0},
			Filters:   map[string]any{"metadata.tags": "missing"},
			Limit:     10,
		})
		require.NoError(t, err)
		assert.Empty(t, results)

		require.NoError(t, index.Delete(ctx, "tagged"))
	})

	t.Run("nested filter paths", func(t *testing.T) {
		require.NoError(t, index.Store(ctx, "m", map[string]any{
			"content":   "m",
			"embedding": []float32{1, 0},
			"metadata":  map[string]any{"author": "alice"},
		}))

		results, err := index.Search(ctx, SearchQuery{
			Embedding: []float32{1, 0},
			Filters:   map[string]any{"metadata.author": "alice"},
			Limit:     10,
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "m", results[0]["content"])
	})
}

func TestMemoryIndexDelete(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex()

	require.NoError(t, index.Store(ctx, "a", record("a", "", []float32{1})))

	require.NoError(t, index.Delete(ctx, "a"))
	require.NoError(t, index.Delete(ctx, "a")) // idempotent
	require.NoError(t, index.Delete(ctx, "never-existed"))

	count, err := index.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMemoryIndexDeleteByQuery(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex()

	require.NoError(t, index.Store(ctx, "a", record("a", "wiki", []float32{1})))
	require.NoError(t, index.Store(ctx, "b", record("b", "wiki", []float32{1})))
	require.NoError(t, index.Store(ctx, "c", record("c", "blog", []float32{1})))

	t.Run("filtered", func(t *testing.T) {
		removed, err := index.DeleteByQuery(ctx, map[string]any{"source": "wiki"})
		require.NoError(t, err)
		assert.Equal(t, 2, removed)
	})

	t.Run("nil filters match everything", func(t *testing.T) {
		removed, err := index.DeleteByQuery(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		count, err := index.Count(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestMemoryIndexDistinct(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex()

	require.NoError(t, index.Store(ctx, "a", record("a", "wiki", []float32{1})))
	require.NoError(t, index.Store(ctx, "b", record("b", "wiki", []float32{1})))
	require.NoError(t, index.Store(ctx, "c", record("c", "blog", []float32{1})))
	require.NoError(t, index.Store(ctx, "d", record("d", "", []float32{1})))

	values, err := index.Distinct(ctx, "source", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"wiki": 2, "blog": 1}, values)
}

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	})

	t.Run("mismatched lengths", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 2}))
	})

	t.Run("zero vector", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	})
}
