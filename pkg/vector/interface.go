// Package vector provides the vector index backends used by the document
// store. Backends work with map[string]any records for maximum flexibility;
// domain types are converted at the application layer.
package vector

import (
	"context"
	"fmt"
)

// Score is the key under which backends report the similarity score of a
// search hit inside the returned record.
const Score = "_score"

// SearchQuery represents a generic nearest-neighbor query.
type SearchQuery struct {
	// Filters for exact match (field -> value). Nested fields use dotted
	// paths, e.g. "metadata.author".
	Filters map[string]any

	// Embedding vector for k-NN search.
	Embedding []float32

	// ScoreThreshold drops hits scoring below it when positive.
	ScoreThreshold float64

	// Limit on results.
	Limit int
}

// Index defines the interface for vector index backends.
type Index interface {
	// Store indexes a record under the given id, replacing any previous
	// record with that id.
	Store(ctx context.Context, id string, doc map[string]any) error

	// Get retrieves a record by id. A missing id yields (nil, nil).
	Get(ctx context.Context, id string) (map[string]any, error)

	// Search returns the records nearest to the query embedding, ordered
	// by descending score. Each hit carries its score under the Score key.
	Search(ctx context.Context, query SearchQuery) ([]map[string]any, error)

	// Delete removes a record by id. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteByQuery removes records matching the filters and returns the
	// number removed. Nil filters match everything.
	DeleteByQuery(ctx context.Context, filters map[string]any) (int, error)

	// Count counts records matching the filters.
	Count(ctx context.Context, filters map[string]any) (int, error)

	// Distinct returns the distinct non-empty values of a field among
	// records matching the filters, with per-value record counts.
	Distinct(ctx context.Context, field string, filters map[string]any) (map[string]int, error)

	// Close releases backend resources.
	Close() error
}

// Backend names accepted by Config.
const (
	BackendOpenSearch = "opensearch"
	BackendMemory     = "memory"
)

// Config selects and configures an index backend.
type Config struct {
	Backend    string           `toml:"backend"`
	OpenSearch OpenSearchConfig `toml:"opensearch"`
}

// Validate checks the backend selection and its settings.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOpenSearch:
		return c.OpenSearch.Validate()
	case BackendMemory:
		return nil
	case "":
		return fmt.Errorf("backend is required")
	default:
		return fmt.Errorf("unknown backend: %s", c.Backend)
	}
}

// New creates the configured index backend.
func New(cfg Config) (Index, error) {
	switch cfg.Backend {
	case BackendOpenSearch:
		return NewOpenSearchIndex(cfg.OpenSearch)
	case BackendMemory:
		return NewMemoryIndex(), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
}
