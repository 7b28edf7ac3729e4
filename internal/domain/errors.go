package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies failures surfaced by the document service.
type Kind string

const (
	// KindValidation marks malformed caller input. Never retried.
	KindValidation Kind = "validation"

	// KindNotFound marks a reference to a document id that does not exist
	// for an operation that requires it to. Deletions report non-existence
	// as a normal result instead.
	KindNotFound Kind = "not_found"

	// KindConflict marks a caller-supplied id colliding with an existing
	// document on creation.
	KindConflict Kind = "conflict"

	// KindEmbedding marks a provider failure after its retry budget.
	KindEmbedding Kind = "embedding"

	// KindStore marks a vector index failure outside the service's control.
	KindStore Kind = "store"
)

// Error is the domain error carried by all service operations. It keeps
// enough context (offending id, batch position, cause) for the caller to
// retry precisely the failed subset.
type Error struct {
	Kind Kind `json:"kind"`

	// ID is the offending document id, when known.
	ID string `json:"id,omitempty"`

	// Index is the batch input position, -1 for single-item operations.
	Index int `json:"index"`

	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.ID != "" {
		msg += fmt.Sprintf(" (id=%s)", e.ID)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithIndex returns a copy of the error tagged with the batch position.
func (e *Error) WithIndex(index int) *Error {
	clone := *e
	clone.Index = index
	return &clone
}

// NewValidationError reports malformed caller input.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Index: -1, Message: message}
}

// NewNotFoundError reports a missing document id.
func NewNotFoundError(id string) *Error {
	return &Error{Kind: KindNotFound, ID: id, Index: -1, Message: "document not found"}
}

// NewConflictError reports an id collision on creation.
func NewConflictError(id string) *Error {
	return &Error{Kind: KindConflict, ID: id, Index: -1, Message: "document already exists"}
}

// NewEmbeddingError reports a provider failure.
func NewEmbeddingError(id string, cause error) *Error {
	return &Error{Kind: KindEmbedding, ID: id, Index: -1, Message: "embedding failed", Cause: cause}
}

// NewStoreError reports a vector index failure.
func NewStoreError(id string, cause error) *Error {
	return &Error{Kind: KindStore, ID: id, Index: -1, Message: "store operation failed", Cause: cause}
}

// AsError extracts the domain error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return IsKind(err, KindValidation) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return IsKind(err, KindConflict) }

// IsEmbedding reports whether err is an embedding error.
func IsEmbedding(err error) bool { return IsKind(err, KindEmbedding) }

// IsStore reports whether err is a store error.
func IsStore(err error) bool { return IsKind(err, KindStore) }
