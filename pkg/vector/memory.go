package vector

import (
	"context"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// MemoryIndex is an in-memory Index using brute-force cosine similarity.
// It is intended for tests and local development.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]map[string]any
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		docs: make(map[string]map[string]any),
	}
}

// Store indexes a record, replacing any previous record with the same id.
func (s *MemoryIndex) Store(ctx context.Context, id string, doc map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[id] = cloneRecord(doc)

	return nil
}

// Get retrieves a record by id, (nil, nil) when missing.
func (s *MemoryIndex) Get(ctx context.Context, id string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}

	return cloneRecord(doc), nil
}

// Search scores every matching record against the query embedding and
// returns them ordered by descending cosine similarity.
func (s *MemoryIndex) Search(ctx context.Context, query SearchQuery) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []map[string]any
	for _, doc := range s.docs {
		if !matchesFilters(doc, query.Filters) {
			continue
		}

		embedding, ok := doc["embedding"].([]float32)
		if !ok || len(embedding) == 0 {
			continue
		}

		score := CosineSimilarity(query.Embedding, embedding)
		if query.ScoreThreshold > 0 && score < query.ScoreThreshold {
			continue
		}

		clone := cloneRecord(doc)
		clone[Score] = score

		results = append(results, clone)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i][Score].(float64) > results[j][Score].(float64)
	})

	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}

	return results, nil
}

// Delete removes a record by id. Missing ids are tolerated.
func (s *MemoryIndex) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, id)
	return nil
}

// DeleteByQuery removes records matching the filters.
func (s *MemoryIndex) DeleteByQuery(ctx context.Context, filters map[string]any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, doc := range s.docs {
		if matchesFilters(doc, filters) {
			delete(s.docs, id)
			removed++
		}
	}

	return removed, nil
}

// Count counts records matching the filters.
func (s *MemoryIndex) Count(ctx context.Context, filters map[string]any) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, doc := range s.docs {
		if matchesFilters(doc, filters) {
			count++
		}
	}

	return count, nil
}

// Distinct returns distinct non-empty values of a field with record counts.
func (s *MemoryIndex) Distinct(ctx context.Context, field string, filters map[string]any) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make(map[string]int)
	for _, doc := range s.docs {
		if !matchesFilters(doc, filters) {
			continue
		}
		if v, ok := lookupField(doc, field).(string); ok && v != "" {
			values[v]++
		}
	}

	return values, nil
}

// Close is a no-op for the in-memory index.
func (s *MemoryIndex) Close() error {
	return nil
}

// matchesFilters reports whether every filter matches the record.
// Nil filters match everything.
func matchesFilters(doc map[string]any, filters map[string]any) bool {
	for field, want := range filters {
		if !fieldMatches(lookupField(doc, field), want) {
			return false
		}
	}
	return true
}

// fieldMatches reports whether a stored value satisfies a filter value:
// deep equality, or membership when the stored value is a list. Deep
// equality covers slice-valued metadata, which interface comparison
// cannot.
func fieldMatches(got, want any) bool {
	if reflect.DeepEqual(got, want) {
		return true
	}
	if list, ok := got.([]any); ok {
		for _, item := range list {
			if reflect.DeepEqual(item, want) {
				return true
			}
		}
	}
	return false
}

// cloneRecord deep-copies a record so stored state never aliases caller
// maps or nested containers. Vector slices are shared; the store treats
// them as immutable.
func cloneRecord(doc map[string]any) map[string]any {
	return cloneValue(doc).(map[string]any)
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		clone := make(map[string]any, len(val))
		for k, item := range val {
			clone[k] = cloneValue(item)
		}
		return clone
	case []any:
		clone := make([]any, len(val))
		for i, item := range val {
			clone[i] = cloneValue(item)
		}
		return clone
	default:
		return v
	}
}

// lookupField resolves a dotted field path, e.g. "metadata.author".
func lookupField(doc map[string]any, field string) any {
	parts := strings.Split(field, ".")
	var current any = doc
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

// CosineSimilarity calculates the cosine similarity of two vectors.
// It returns 0 for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
