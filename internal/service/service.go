// Package service implements the document service core: it orchestrates
// embedding generation and vector store mutation, enforces validation, and
// computes derived collection views (count, sources, stats).
//
// Derived views are always computed from the live backend at call time, so
// every completed mutation is visible to them immediately.
package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Zereker/docstore/internal/domain"
	"github.com/Zereker/docstore/internal/store"
	"github.com/Zereker/docstore/pkg/embedding"
	"github.com/Zereker/docstore/pkg/log"
)

const (
	// DistanceMetric reported in collection stats. Both backends score by
	// cosine similarity.
	DistanceMetric = "cosine"

	defaultBatchConcurrency = 8
)

// Config holds document service configuration.
type Config struct {
	// Collection names the document collection, reported in stats.
	Collection string `toml:"collection"`

	// EmbeddingModel is the model identifier reported in stats.
	EmbeddingModel string `toml:"-"`

	// BatchConcurrency bounds concurrent per-item work in batch
	// operations.
	BatchConcurrency int `toml:"batch_concurrency"`
}

// Service is the single entry point for document operations. It holds no
// collection state of its own; the vector backend is the source of truth,
// so multiple independent services can coexist in one process.
type Service struct {
	logger     *slog.Logger
	provider   embedding.Provider
	adapter    *store.Adapter
	collection string
	model      string
	batchLimit int
}

// New creates a document service over the given provider and adapter.
func New(cfg Config, provider embedding.Provider, adapter *store.Adapter) *Service {
	limit := cfg.BatchConcurrency
	if limit <= 0 {
		limit = defaultBatchConcurrency
	}

	collection := cfg.Collection
	if collection == "" {
		collection = "documents"
	}

	return &Service{
		logger:     log.Logger("service"),
		provider:   provider,
		adapter:    adapter,
		collection: collection,
		model:      cfg.EmbeddingModel,
		batchLimit: limit,
	}
}

// AddDocument validates, embeds, and persists a single document. When no
// id is supplied one is assigned; a supplied id colliding with an existing
// document is a conflict, never a silent overwrite.
func (s *Service) AddDocument(ctx context.Context, in domain.AddInput) (*domain.Document, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	// Check the id before embedding so a conflict costs no provider call.
	if in.ID != "" {
		existing, _, err := s.adapter.Get(ctx, in.ID)
		if err != nil {
			return nil, domain.NewStoreError(in.ID, err)
		}
		if existing != nil {
			return nil, domain.NewConflictError(in.ID)
		}
	}

	vec, err := s.provider.Embed(ctx, in.Content)
	if err != nil {
		return nil, domain.NewEmbeddingError(in.ID, err)
	}

	doc, err := s.persist(ctx, in, vec)
	if err != nil {
		return nil, err
	}

	s.logger.Info("added document", "id", doc.ID, "source", doc.Source)
	return doc, nil
}

// UpdateDocument replaces the supplied fields of an existing document.
// A new embedding is requested only when the content actually changes; the
// record is replaced as a whole, so an update either fully applies or
// fully fails.
func (s *Service) UpdateDocument(ctx context.Context, id string, in domain.UpdateInput) (*domain.Document, error) {
	if in.Empty() {
		return nil, domain.NewValidationError("at least one field must be supplied")
	}

	existing, vec, err := s.adapter.Get(ctx, id)
	if err != nil {
		return nil, domain.NewStoreError(id, err)
	}
	if existing == nil {
		return nil, domain.NewNotFoundError(id)
	}

	doc := *existing
	reembed := false

	if in.Content != nil {
		if strings.TrimSpace(*in.Content) == "" {
			return nil, domain.NewValidationError("content must not be empty")
		}
		if *in.Content != doc.Content {
			reembed = true
		}
		doc.Content = *in.Content
	}
	if in.Source != nil {
		doc.Source = *in.Source
	}
	if in.Metadata != nil {
		doc.Metadata = in.Metadata
	}

	if reembed {
		vec, err = s.provider.Embed(ctx, doc.Content)
		if err != nil {
			return nil, domain.NewEmbeddingError(id, err)
		}
	}

	doc.UpdatedAt = time.Now().UTC()

	if err := s.adapter.Upsert(ctx, doc, vec); err != nil {
		return nil, domain.NewStoreError(id, err)
	}

	s.logger.Info("updated document", "id", id, "reembedded", reembed)
	return &doc, nil
}

// DeleteDocument removes a document by id. It returns false when the id
// did not exist; deletion is idempotent and never an error for missing
// ids.
func (s *Service) DeleteDocument(ctx context.Context, id string) (bool, error) {
	existing, _, err := s.adapter.Get(ctx, id)
	if err != nil {
		return false, domain.NewStoreError(id, err)
	}
	if existing == nil {
		return false, nil
	}

	if err := s.adapter.Delete(ctx, id); err != nil {
		return false, domain.NewStoreError(id, err)
	}

	s.logger.Info("deleted document", "id", id)
	return true, nil
}

// DeleteBySource removes every document whose source matches exactly and
// returns the number removed. Zero matches is a normal result.
func (s *Service) DeleteBySource(ctx context.Context, source string) (int, error) {
	if strings.TrimSpace(source) == "" {
		return 0, domain.NewValidationError("source must not be empty")
	}

	removed, err := s.adapter.DeleteBySource(ctx, source)
	if err != nil {
		return 0, domain.NewStoreError("", err)
	}

	s.logger.Info("deleted documents by source", "source", source, "removed", removed)
	return removed, nil
}

// ClearCollection removes every document. The collection identity
// persists; subsequent adds behave as if the collection were new.
func (s *Service) ClearCollection(ctx context.Context) (int, error) {
	removed, err := s.adapter.DeleteAll(ctx)
	if err != nil {
		return 0, domain.NewStoreError("", err)
	}

	s.logger.Warn("cleared collection", "collection", s.collection, "removed", removed)
	return removed, nil
}

// SimilaritySearchWithScores embeds the query and returns up to K
// documents ordered by descending similarity score.
func (s *Service) SimilaritySearchWithScores(ctx context.Context, req domain.SearchRequest) ([]domain.SearchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	vec, err := s.provider.Embed(ctx, req.Query)
	if err != nil {
		return nil, domain.NewEmbeddingError("", err)
	}

	results, err := s.adapter.Query(ctx, vec, req.K, req.Filter, req.ScoreThreshold)
	if err != nil {
		return nil, domain.NewStoreError("", err)
	}

	s.logger.Debug("similarity search", "k", req.K, "found", len(results))
	return results, nil
}

// SimilaritySearch is SimilaritySearchWithScores with scores stripped;
// ordering is unchanged.
func (s *Service) SimilaritySearch(ctx context.Context, req domain.SearchRequest) ([]domain.Document, error) {
	results, err := s.SimilaritySearchWithScores(ctx, req)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, len(results))
	for i, r := range results {
		docs[i] = r.Document
	}
	return docs, nil
}

// GetDocumentCount returns the current number of documents.
func (s *Service) GetDocumentCount(ctx context.Context) (int, error) {
	count, err := s.adapter.Count(ctx)
	if err != nil {
		return 0, domain.NewStoreError("", err)
	}
	return count, nil
}

// ListSources returns the distinct non-empty sources currently present,
// sorted.
func (s *Service) ListSources(ctx context.Context) ([]string, error) {
	counts, err := s.adapter.SourceCounts(ctx)
	if err != nil {
		return nil, domain.NewStoreError("", err)
	}

	sources := make([]string, 0, len(counts))
	for source := range counts {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	return sources, nil
}

// GetStats computes a summary of the collection from its live state.
func (s *Service) GetStats(ctx context.Context) (*domain.CollectionStats, error) {
	count, err := s.adapter.Count(ctx)
	if err != nil {
		return nil, domain.NewStoreError("", err)
	}

	sourceCounts, err := s.adapter.SourceCounts(ctx)
	if err != nil {
		return nil, domain.NewStoreError("", err)
	}

	sources := make([]string, 0, len(sourceCounts))
	for source := range sourceCounts {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	return &domain.CollectionStats{
		Collection:     s.collection,
		DocumentCount:  count,
		Sources:        sources,
		SourceCounts:   sourceCounts,
		DistanceMetric: DistanceMetric,
		EmbeddingModel: s.model,
	}, nil
}
