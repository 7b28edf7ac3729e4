package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	t.Run("empty text yields no chunks", func(t *testing.T) {
		c := NewChunker(5, 2)
		assert.Nil(t, c.Chunk(""))
		assert.Nil(t, c.Chunk("   \n\t  "))
	})

	t.Run("short text yields one chunk", func(t *testing.T) {
		c := NewChunker(5, 2)
		chunks := c.Chunk("just three words")
		require.Len(t, chunks, 1)
		assert.Equal(t, "just three words", chunks[0])
	})

	t.Run("windows overlap", func(t *testing.T) {
		c := NewChunker(5, 2)
		words := []string{"w1", "w2", "w3", "w4", "w5", "w6", "w7", "w8", "w9", "w10", "w11", "w12"}

		chunks := c.Chunk(strings.Join(words, " "))
		require.Len(t, chunks, 4)
		assert.Equal(t, "w1 w2 w3 w4 w5", chunks[0])
		assert.Equal(t, "w4 w5 w6 w7 w8", chunks[1])
		assert.Equal(t, "w7 w8 w9 w10 w11", chunks[2])
		assert.Equal(t, "w10 w11 w12", chunks[3])
	})

	t.Run("every word is covered", func(t *testing.T) {
		c := NewChunker(4, 1)
		words := []string{"a", "b", "c", "d", "e", "f", "g"}

		chunks := c.Chunk(strings.Join(words, " "))
		covered := make(map[string]bool)
		for _, chunk := range chunks {
			for _, w := range strings.Fields(chunk) {
				covered[w] = true
			}
		}
		assert.Len(t, covered, len(words))
	})

	t.Run("whitespace is normalized", func(t *testing.T) {
		c := NewChunker(10, 0)
		chunks := c.Chunk("one\n  two\t three")
		require.Len(t, chunks, 1)
		assert.Equal(t, "one two three", chunks[0])
	})
}

func TestNewChunkerDefaults(t *testing.T) {
	t.Run("non-positive size selects defaults", func(t *testing.T) {
		c := NewChunker(0, -1)
		assert.Equal(t, DefaultChunkSize, c.chunkSize)
		assert.Equal(t, DefaultChunkOverlap, c.chunkOverlap)
	})

	t.Run("overlap is clamped below size", func(t *testing.T) {
		c := NewChunker(5, 9)
		assert.Equal(t, 4, c.chunkOverlap)

		// Oversized overlap must not cause an infinite window.
		chunks := c.Chunk("a b c d e f g h i j")
		assert.NotEmpty(t, chunks)
	})
}
