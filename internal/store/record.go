package store

import (
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/Zereker/docstore/internal/domain"
	"github.com/Zereker/docstore/pkg/vector"
)

// record is the backend-native shape of a stored document.
type record struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Source    string         `json:"source,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"embedding"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Score     float64        `json:"_score,omitempty"`
}

func (r *record) document() domain.Document {
	return domain.Document{
		ID:        r.ID,
		Content:   r.Content,
		Source:    r.Source,
		Metadata:  r.Metadata,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// toRecord builds the backend record map for a document and its embedding.
func toRecord(doc domain.Document, embedding []float32) map[string]any {
	rec := map[string]any{
		"id":         doc.ID,
		"content":    doc.Content,
		"source":     doc.Source,
		"embedding":  embedding,
		"created_at": doc.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at": doc.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if len(doc.Metadata) > 0 {
		rec["metadata"] = doc.Metadata
	}
	return rec
}

// fromRecord decodes a backend record map. Backends return JSON-decoded
// maps, so embeddings may arrive as []any and times as strings; the decode
// hooks normalize both.
func fromRecord(raw map[string]any) (*record, error) {
	var rec record

	config := &mapstructure.DecoderConfig{
		Result:           &rec,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(float32SliceHook, timeHook),
	}

	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return nil, errors.Wrap(err, "create decoder")
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "decode record")
	}

	if score, ok := raw[vector.Score].(float64); ok {
		rec.Score = score
	}

	return &rec, nil
}

// float32SliceHook converts []any/[]float32 values to []float32.
func float32SliceHook(_, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf([]float32{}) {
		return data, nil
	}

	if f32Slice, ok := data.([]float32); ok {
		return f32Slice, nil
	}

	slice, ok := data.([]any)
	if !ok {
		return data, nil
	}

	result := make([]float32, len(slice))
	for i, v := range slice {
		if f, ok := v.(float64); ok {
			result[i] = float32(f)
		}
	}

	return result, nil
}

// timeHook converts string values to time.Time.
func timeHook(_, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}

	if t, ok := data.(time.Time); ok {
		return t, nil
	}

	str, ok := data.(string)
	if !ok {
		return data, nil
	}

	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, str); err == nil {
			return t, nil
		}
	}

	return data, errors.Errorf("unable to parse time: %s", str)
}
