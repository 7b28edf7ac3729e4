package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddInputValidate(t *testing.T) {
	t.Run("valid input", func(t *testing.T) {
		in := AddInput{Content: "hello"}
		assert.NoError(t, in.Validate())
	})

	t.Run("empty content", func(t *testing.T) {
		in := AddInput{}
		assert.True(t, IsValidation(in.Validate()))
	})

	t.Run("whitespace-only content", func(t *testing.T) {
		in := AddInput{Content: " \n\t "}
		assert.True(t, IsValidation(in.Validate()))
	})
}

func TestUpdateInputEmpty(t *testing.T) {
	content := "x"

	assert.True(t, (&UpdateInput{}).Empty())
	assert.False(t, (&UpdateInput{Content: &content}).Empty())
	assert.False(t, (&UpdateInput{Source: &content}).Empty())
	assert.False(t, (&UpdateInput{Metadata: map[string]any{}}).Empty())
}

func TestSearchRequestValidate(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		r := SearchRequest{Query: "hello", K: 3}
		assert.NoError(t, r.Validate())
	})

	t.Run("empty query", func(t *testing.T) {
		r := SearchRequest{Query: "  ", K: 3}
		assert.True(t, IsValidation(r.Validate()))
	})

	t.Run("non-positive k", func(t *testing.T) {
		r := SearchRequest{Query: "hello"}
		assert.True(t, IsValidation(r.Validate()))

		r.K = -1
		assert.True(t, IsValidation(r.Validate()))
	})
}

func TestBatchResultOK(t *testing.T) {
	ok := BatchResult{Index: 0, Document: &Document{ID: "a"}}
	assert.True(t, ok.OK())

	failed := BatchResult{Index: 1, Err: NewValidationError("bad")}
	assert.False(t, failed.OK())
}
