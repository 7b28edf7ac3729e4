package domain

import (
	"strings"
	"time"
)

// MetaSource is the reserved metadata field carrying document provenance.
// Filters on this field are routed to the top-level source attribute of
// the stored record rather than the free-form metadata map.
const MetaSource = "source"

// Document is a unit of text stored in a collection. The embedding vector
// is derived from Content and owned by the store; callers never set it.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Source    string         `json:"source,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SearchResult pairs a document with its similarity score. Higher is more
// similar; the scale depends on the configured backend but is stable for a
// fixed backend configuration.
type SearchResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// CollectionStats is a read-only summary computed from the live collection
// at call time. It is never persisted.
type CollectionStats struct {
	Collection     string         `json:"collection"`
	DocumentCount  int            `json:"document_count"`
	Sources        []string       `json:"sources"`
	SourceCounts   map[string]int `json:"source_counts,omitempty"`
	DistanceMetric string         `json:"distance_metric"`
	EmbeddingModel string         `json:"embedding_model"`
}

// AddInput describes a document to be created. ID is optional; when empty
// the service assigns one.
type AddInput struct {
	ID       string         `json:"id,omitempty"`
	Content  string         `json:"content"`
	Source   string         `json:"source,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate checks the input before any embedding or store call.
func (in *AddInput) Validate() error {
	if strings.TrimSpace(in.Content) == "" {
		return NewValidationError("content must not be empty")
	}
	return nil
}

// UpdateInput describes a partial document update. Nil fields are left
// unchanged; at least one field must be supplied.
type UpdateInput struct {
	Content  *string        `json:"content,omitempty"`
	Source   *string        `json:"source,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Empty reports whether the update supplies no fields at all.
func (in *UpdateInput) Empty() bool {
	return in.Content == nil && in.Source == nil && in.Metadata == nil
}

// SearchRequest describes a similarity search over the collection.
type SearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`

	// Filter restricts results by exact match on metadata fields.
	// The reserved "source" key matches document provenance.
	Filter map[string]any `json:"filter,omitempty"`

	// ScoreThreshold drops results scoring below it when positive.
	ScoreThreshold float64 `json:"score_threshold,omitempty"`
}

// Validate checks the request before the query embedding is generated.
func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return NewValidationError("query must not be empty")
	}
	if r.K <= 0 {
		return NewValidationError("k must be positive")
	}
	return nil
}

// BatchResult is the per-input outcome of a batch add. Exactly one of
// Document and Err is set; Index is the position of the input it belongs to.
type BatchResult struct {
	Index    int       `json:"index"`
	Document *Document `json:"document,omitempty"`
	Err      *Error    `json:"error,omitempty"`
}

// OK reports whether the item was created.
func (r BatchResult) OK() bool {
	return r.Err == nil
}

// DeleteResult is the per-id outcome of a batch delete. Non-existence is
// reported through Deleted, not through Err.
type DeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
	Err     *Error `json:"error,omitempty"`
}
