// Package store translates between the document data model and the vector
// index backend's record shape. The adapter owns no business rules; every
// backend operation is a direct typed pass-through so the document service
// can be tested against an in-memory backend.
package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Zereker/docstore/internal/domain"
	"github.com/Zereker/docstore/pkg/vector"
)

// Adapter wraps a vector.Index with typed inputs and outputs.
type Adapter struct {
	index vector.Index
}

// NewAdapter creates an adapter over the given backend.
func NewAdapter(index vector.Index) *Adapter {
	return &Adapter{index: index}
}

// Upsert stores a document and its embedding, replacing any record with
// the same id.
func (a *Adapter) Upsert(ctx context.Context, doc domain.Document, embedding []float32) error {
	return a.index.Store(ctx, doc.ID, toRecord(doc, embedding))
}

// Get fetches a document and its stored embedding by id. A missing id
// yields (nil, nil, nil).
func (a *Adapter) Get(ctx context.Context, id string) (*domain.Document, []float32, error) {
	raw, err := a.index.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if raw == nil {
		return nil, nil, nil
	}

	rec, err := fromRecord(raw)
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "decode document %s", id)
	}

	doc := rec.document()
	return &doc, rec.Embedding, nil
}

// Delete removes a document by id. Missing ids are tolerated.
func (a *Adapter) Delete(ctx context.Context, id string) error {
	return a.index.Delete(ctx, id)
}

// DeleteBySource removes every document whose source matches exactly and
// returns the number removed.
func (a *Adapter) DeleteBySource(ctx context.Context, source string) (int, error) {
	return a.index.DeleteByQuery(ctx, map[string]any{domain.MetaSource: source})
}

// DeleteAll removes every document and returns the number removed.
func (a *Adapter) DeleteAll(ctx context.Context) (int, error) {
	return a.index.DeleteByQuery(ctx, nil)
}

// Query runs a k-NN search and rehydrates documents with scores, ordered
// by descending similarity.
func (a *Adapter) Query(ctx context.Context, embedding []float32, k int, filter map[string]any, threshold float64) ([]domain.SearchResult, error) {
	hits, err := a.index.Search(ctx, vector.SearchQuery{
		Embedding:      embedding,
		Filters:        backendFilters(filter),
		Limit:          k,
		ScoreThreshold: threshold,
	})
	if err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		rec, err := fromRecord(hit)
		if err != nil {
			return nil, errors.WithMessage(err, "decode search hit")
		}
		results = append(results, domain.SearchResult{
			Document: rec.document(),
			Score:    rec.Score,
		})
	}

	return results, nil
}

// Count returns the number of documents in the collection.
func (a *Adapter) Count(ctx context.Context) (int, error) {
	return a.index.Count(ctx, nil)
}

// SourceCounts returns the distinct non-empty sources with their document
// counts.
func (a *Adapter) SourceCounts(ctx context.Context) (map[string]int, error) {
	return a.index.Distinct(ctx, domain.MetaSource, nil)
}

// backendFilters maps caller-facing filter keys to backend field paths:
// the reserved source key targets the top-level source field, everything
// else lives under metadata.
func backendFilters(filter map[string]any) map[string]any {
	if len(filter) == 0 {
		return nil
	}

	mapped := make(map[string]any, len(filter))
	for key, value := range filter {
		if key == domain.MetaSource {
			mapped[key] = value
			continue
		}
		mapped["metadata."+key] = value
	}
	return mapped
}
