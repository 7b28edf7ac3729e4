package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// JSON-shaped input, the way an OpenSearch hit decodes: embeddings as
// []any of float64, times as strings.
func TestFromRecordJSONShapes(t *testing.T) {
	raw := map[string]any{
		"id":         "doc-1",
		"content":    "hello",
		"source":     "wiki",
		"metadata":   map[string]any{"page": float64(3)},
		"embedding":  []any{float64(0.25), float64(0.5)},
		"created_at": "2026-08-01T10:00:00Z",
		"updated_at": "2026-08-02T10:00:00.123456789Z",
		"_score":     0.87,
	}

	rec, err := fromRecord(raw)
	require.NoError(t, err)

	assert.Equal(t, "doc-1", rec.ID)
	assert.Equal(t, []float32{0.25, 0.5}, rec.Embedding)
	assert.Equal(t, 0.87, rec.Score)

	want, _ := time.Parse(time.RFC3339, "2026-08-01T10:00:00Z")
	assert.True(t, want.Equal(rec.CreatedAt))
	assert.Equal(t, 123456789, rec.UpdatedAt.Nanosecond())

	doc := rec.document()
	assert.Equal(t, "wiki", doc.Source)
	assert.Equal(t, float64(3), doc.Metadata["page"])
}

func TestFromRecordBadTime(t *testing.T) {
	raw := map[string]any{
		"id":         "doc-1",
		"content":    "hello",
		"embedding":  []any{float64(1)},
		"created_at": "not-a-time",
	}

	_, err := fromRecord(raw)
	assert.Error(t, err)
}

func TestToRecordOmitsEmptyMetadata(t *testing.T) {
	rec := toRecord(testDoc("doc-1", "hello", ""), []float32{1})

	_, hasMetadata := rec["metadata"]
	assert.False(t, hasMetadata)
	assert.Equal(t, []float32{1}, rec["embedding"])
}
