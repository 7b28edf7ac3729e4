package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Zereker/docstore/internal/domain"
)

// AddDocuments creates documents best-effort: one item's failure never
// aborts the batch, and the returned slice matches input order, one entry
// per input. Embeddings are requested in a single batched provider call;
// when that call fails the service falls back to per-item calls so a
// single bad input cannot poison its neighbors.
func (s *Service) AddDocuments(ctx context.Context, inputs []domain.AddInput) []domain.BatchResult {
	results := make([]domain.BatchResult, len(inputs))
	for i := range results {
		results[i].Index = i
	}

	// Validation and intra-batch id collisions first; invalid items never
	// reach the provider.
	var pending []int
	seen := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			e, _ := domain.AsError(err)
			results[i].Err = e.WithIndex(i)
			continue
		}
		if in.ID != "" {
			if seen[in.ID] {
				results[i].Err = domain.NewConflictError(in.ID).WithIndex(i)
				continue
			}
			seen[in.ID] = true
		}
		pending = append(pending, i)
	}

	if len(pending) == 0 {
		return results
	}

	vectors := s.embedBatch(ctx, inputs, pending, results)

	var g errgroup.Group
	g.SetLimit(s.batchLimit)

	for _, i := range pending {
		if results[i].Err != nil {
			continue
		}

		i := i
		g.Go(func() error {
			doc, err := s.persist(ctx, inputs[i], vectors[i])
			if err != nil {
				e, _ := domain.AsError(err)
				results[i].Err = e.WithIndex(i)
				return nil
			}
			results[i].Document = doc
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// persist resolves the id, checks for collisions with stored documents,
// and writes one already-embedded document.
func (s *Service) persist(ctx context.Context, in domain.AddInput, vec []float32) (*domain.Document, error) {
	id := in.ID
	if id != "" {
		existing, _, err := s.adapter.Get(ctx, id)
		if err != nil {
			return nil, domain.NewStoreError(id, err)
		}
		if existing != nil {
			return nil, domain.NewConflictError(id)
		}
	} else {
		id = uuid.NewString()
	}

	now := time.Now().UTC()
	doc := domain.Document{
		ID:        id,
		Content:   in.Content,
		Source:    in.Source,
		Metadata:  in.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.adapter.Upsert(ctx, doc, vec); err != nil {
		return nil, domain.NewStoreError(id, err)
	}

	return &doc, nil
}

// embedBatch fills one vector per pending input, recording per-item
// embedding errors into results. It returns a slice indexed by input
// position.
func (s *Service) embedBatch(ctx context.Context, inputs []domain.AddInput, pending []int, results []domain.BatchResult) [][]float32 {
	vectors := make([][]float32, len(inputs))

	texts := make([]string, len(pending))
	for j, i := range pending {
		texts[j] = inputs[i].Content
	}

	batch, err := s.provider.EmbedBatch(ctx, texts)
	if err == nil && len(batch) == len(texts) {
		for j, i := range pending {
			vectors[i] = batch[j]
		}
		return vectors
	}

	if err != nil {
		s.logger.Warn("batched embedding failed, falling back to per-item calls", "error", err)
	}

	var g errgroup.Group
	g.SetLimit(s.batchLimit)

	for _, i := range pending {
		i := i
		g.Go(func() error {
			vec, err := s.provider.Embed(ctx, inputs[i].Content)
			if err != nil {
				results[i].Err = domain.NewEmbeddingError(inputs[i].ID, err).WithIndex(i)
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}
	_ = g.Wait()

	return vectors
}

// DeleteDocuments removes documents best-effort, reporting each id's
// outcome independently in input order. Non-existence is reported through
// Deleted, not as an error.
func (s *Service) DeleteDocuments(ctx context.Context, ids []string) []domain.DeleteResult {
	results := make([]domain.DeleteResult, len(ids))

	var g errgroup.Group
	g.SetLimit(s.batchLimit)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			deleted, err := s.DeleteDocument(ctx, id)
			if err != nil {
				e, _ := domain.AsError(err)
				results[i] = domain.DeleteResult{ID: id, Err: e.WithIndex(i)}
				return nil
			}
			results[i] = domain.DeleteResult{ID: id, Deleted: deleted}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
