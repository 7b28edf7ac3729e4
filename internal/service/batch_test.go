package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zereker/docstore/internal/domain"
)

func TestAddDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("empty batch", func(t *testing.T) {
		svc, _ := newTestService(t)

		results := svc.AddDocuments(ctx, nil)
		assert.Empty(t, results)
	})

	t.Run("all valid", func(t *testing.T) {
		svc, provider := newTestService(t)

		results := svc.AddDocuments(ctx, []domain.AddInput{
			{Content: "one"},
			{Content: "two"},
			{Content: "three"},
		})

		require.Len(t, results, 3)
		for i, result := range results {
			assert.Equal(t, i, result.Index)
			assert.True(t, result.OK())
			require.NotNil(t, result.Document)
			assert.NotEmpty(t, result.Document.ID)
		}

		// One batched provider call, no per-item calls.
		assert.Equal(t, 1, provider.batchCalls)
		assert.Equal(t, 0, provider.embedCalls)

		count, err := svc.GetDocumentCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("invalid item does not abort the batch", func(t *testing.T) {
		svc, _ := newTestService(t)

		results := svc.AddDocuments(ctx, []domain.AddInput{
			{Content: "first"},
			{Content: "   "},
			{Content: "third"},
		})

		require.Len(t, results, 3)
		assert.True(t, results[0].OK())
		assert.True(t, results[2].OK())

		require.NotNil(t, results[1].Err)
		assert.Equal(t, domain.KindValidation, results[1].Err.Kind)
		assert.Equal(t, 1, results[1].Err.Index)
		assert.Nil(t, results[1].Document)

		count, err := svc.GetDocumentCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("duplicate ids within the batch", func(t *testing.T) {
		svc, _ := newTestService(t)

		results := svc.AddDocuments(ctx, []domain.AddInput{
			{ID: "doc-1", Content: "first"},
			{ID: "doc-1", Content: "second"},
		})

		require.Len(t, results, 2)
		assert.True(t, results[0].OK())

		require.NotNil(t, results[1].Err)
		assert.Equal(t, domain.KindConflict, results[1].Err.Kind)
		assert.Equal(t, "doc-1", results[1].Err.ID)

		count, err := svc.GetDocumentCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("conflict with stored document", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.AddDocument(ctx, domain.AddInput{ID: "doc-1", Content: "existing"})
		require.NoError(t, err)

		results := svc.AddDocuments(ctx, []domain.AddInput{
			{ID: "doc-1", Content: "colliding"},
			{Content: "fresh"},
		})

		require.Len(t, results, 2)
		require.NotNil(t, results[0].Err)
		assert.Equal(t, domain.KindConflict, results[0].Err.Kind)
		assert.True(t, results[1].OK())
	})

	t.Run("falls back to per-item embedding", func(t *testing.T) {
		svc, provider := newTestService(t)
		provider.failBatch = true

		results := svc.AddDocuments(ctx, []domain.AddInput{
			{Content: "one"},
			{Content: "two"},
		})

		require.Len(t, results, 2)
		assert.True(t, results[0].OK())
		assert.True(t, results[1].OK())

		assert.Equal(t, 1, provider.batchCalls)
		assert.Equal(t, 2, provider.embedCalls)
	})

	t.Run("per-item embedding failure is isolated", func(t *testing.T) {
		svc, provider := newTestService(t)
		provider.failBatch = true
		provider.failTexts["poison"] = true

		results := svc.AddDocuments(ctx, []domain.AddInput{
			{Content: "fine"},
			{Content: "poison"},
			{Content: "also fine"},
		})

		require.Len(t, results, 3)
		assert.True(t, results[0].OK())
		assert.True(t, results[2].OK())

		require.NotNil(t, results[1].Err)
		assert.Equal(t, domain.KindEmbedding, results[1].Err.Kind)
		assert.Equal(t, 1, results[1].Err.Index)

		count, err := svc.GetDocumentCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestDeleteDocuments(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.AddDocument(ctx, domain.AddInput{ID: "doc-1", Content: "one"})
	require.NoError(t, err)
	_, err = svc.AddDocument(ctx, domain.AddInput{ID: "doc-2", Content: "two"})
	require.NoError(t, err)

	results := svc.DeleteDocuments(ctx, []string{"doc-1", "missing", "doc-2"})

	require.Len(t, results, 3)
	assert.Equal(t, "doc-1", results[0].ID)
	assert.True(t, results[0].Deleted)
	assert.Equal(t, "missing", results[1].ID)
	assert.False(t, results[1].Deleted)
	assert.Nil(t, results[1].Err)
	assert.True(t, results[2].Deleted)

	count, err := svc.GetDocumentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
