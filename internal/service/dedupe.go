package service

import (
	"context"

	"github.com/Zereker/docstore/internal/domain"
	"github.com/Zereker/docstore/pkg/vector"
)

// DefaultRedundancyThreshold is the cosine similarity above which two
// documents are considered near-duplicates.
const DefaultRedundancyThreshold = 0.8

// GetEmbeddings fetches the stored vectors for the given ids, in order.
// A missing id is a not-found error.
func (s *Service) GetEmbeddings(ctx context.Context, ids []string) ([][]float32, error) {
	vectors := make([][]float32, len(ids))
	for i, id := range ids {
		doc, vec, err := s.adapter.Get(ctx, id)
		if err != nil {
			return nil, domain.NewStoreError(id, err)
		}
		if doc == nil {
			return nil, domain.NewNotFoundError(id)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// RedundantDocuments returns the ids of documents whose stored embeddings
// are near-duplicates of an earlier id in the list: for every pair scoring
// above the threshold the earlier document is kept and the later one
// reported. A non-positive threshold selects the default.
func (s *Service) RedundantDocuments(ctx context.Context, ids []string, threshold float64) ([]string, error) {
	if threshold <= 0 {
		threshold = DefaultRedundancyThreshold
	}
	if len(ids) < 2 {
		return nil, nil
	}

	vectors, err := s.GetEmbeddings(ctx, ids)
	if err != nil {
		return nil, err
	}

	redundant := make(map[string]bool)
	for i := 0; i < len(vectors); i++ {
		if redundant[ids[i]] {
			continue
		}
		for j := i + 1; j < len(vectors); j++ {
			if redundant[ids[j]] {
				continue
			}
			if vector.CosineSimilarity(vectors[i], vectors[j]) > threshold {
				redundant[ids[j]] = true
			}
		}
	}

	var result []string
	for _, id := range ids {
		if redundant[id] {
			result = append(result, id)
		}
	}

	s.logger.Debug("redundancy scan", "candidates", len(ids), "redundant", len(result))
	return result, nil
}
