package vector

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
	"github.com/pkg/errors"
)

// OpenSearchConfig holds OpenSearch configuration.
type OpenSearchConfig struct {
	Addresses    []string `toml:"addresses"`
	Username     string   `toml:"username"`
	Password     string   `toml:"password"`
	IndexName    string   `toml:"index"`
	EmbeddingDim int      `toml:"embedding_dim"`
	InsecureSSL  bool     `toml:"insecure_ssl"`
}

// Validate checks OpenSearch configuration.
func (c *OpenSearchConfig) Validate() error {
	if len(c.Addresses) == 0 {
		return errors.New("addresses is required")
	}
	if c.IndexName == "" {
		return errors.New("index is required")
	}
	if c.EmbeddingDim <= 0 {
		return errors.New("embedding_dim must be positive")
	}
	return nil
}

// OpenSearchIndex implements Index using OpenSearch k-NN.
//
// All writes use refresh=true so that derived reads (count, distinct)
// observe completed mutations immediately.
type OpenSearchIndex struct {
	client       *opensearchapi.Client
	indexName    string
	embeddingDim int
}

// NewOpenSearchIndex creates an OpenSearch-backed index, creating the
// backing OpenSearch index with a k-NN mapping when it does not exist.
func NewOpenSearchIndex(cfg OpenSearchConfig) (*OpenSearchIndex, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses: cfg.Addresses,
			Username:  cfg.Username,
			Password:  cfg.Password,
			Transport: transport,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create OpenSearch client")
	}

	idx := &OpenSearchIndex{
		client:       client,
		indexName:    cfg.IndexName,
		embeddingDim: cfg.EmbeddingDim,
	}

	if err := idx.ensureIndex(context.Background()); err != nil {
		return nil, err
	}

	return idx, nil
}

// ensureIndex creates the backing index with the document mapping.
// An already existing index is not an error.
func (s *OpenSearchIndex) ensureIndex(ctx context.Context) error {
	mapping := map[string]any{
		"settings": map[string]any{
			"index": map[string]any{"knn": true},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":      map[string]any{"type": "keyword"},
				"content": map[string]any{"type": "text"},
				"source":  map[string]any{"type": "keyword"},
				"embedding": map[string]any{
					"type":      "knn_vector",
					"dimension": s.embeddingDim,
				},
				"created_at": map[string]any{"type": "date"},
				"updated_at": map[string]any{"type": "date"},
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return errors.Wrap(err, "marshal index mapping")
	}

	_, err = s.client.Indices.Create(ctx, opensearchapi.IndicesCreateReq{
		Index: s.indexName,
		Body:  bytes.NewReader(body),
	})
	if err != nil && !strings.Contains(err.Error(), "resource_already_exists_exception") {
		return errors.Wrap(err, "create index")
	}

	return nil
}

// Store indexes a record with the given id.
func (s *OpenSearchIndex) Store(ctx context.Context, id string, doc map[string]any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "marshal document")
	}

	_, err = s.client.Index(ctx, opensearchapi.IndexReq{
		Index:      s.indexName,
		DocumentID: id,
		Body:       bytes.NewReader(body),
		Params:     opensearchapi.IndexParams{Refresh: "true"},
	})
	if err != nil {
		return errors.Wrap(err, "index document")
	}

	return nil
}

// Get retrieves a record by id.
func (s *OpenSearchIndex) Get(ctx context.Context, id string) (map[string]any, error) {
	resp, err := s.client.Document.Get(ctx, opensearchapi.DocumentGetReq{
		Index:      s.indexName,
		DocumentID: id,
	})
	if err != nil {
		// The client surfaces a missing document as a 404 error response;
		// anything else (connectivity, 5xx) must not look like absence.
		if resp != nil && isNotFound(resp.Inspect().Response) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get document")
	}

	if !resp.Found {
		return nil, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(resp.Source, &doc); err != nil {
		return nil, errors.Wrap(err, "unmarshal document")
	}

	convertEmbeddingToFloat32(doc)

	return doc, nil
}

// Search performs a k-NN query restricted by the filters.
func (s *OpenSearchIndex) Search(ctx context.Context, query SearchQuery) ([]map[string]any, error) {
	filters := filterClauses(query.Filters)

	k := query.Limit
	if k <= 0 {
		k = 10
	}

	boolQuery := map[string]any{
		"must": map[string]any{
			"knn": map[string]any{
				"embedding": map[string]any{"vector": query.Embedding, "k": k},
			},
		},
	}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	body, _ := json.Marshal(map[string]any{
		"size":  k,
		"query": map[string]any{"bool": boolQuery},
	})

	resp, err := s.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{s.indexName},
		Body:    bytes.NewReader(body),
	})
	if err != nil {
		return nil, errors.Wrap(err, "search")
	}

	var results []map[string]any
	for _, hit := range resp.Hits.Hits {
		var doc map[string]any
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			continue
		}

		score := float64(hit.Score)
		if query.ScoreThreshold > 0 && score < query.ScoreThreshold {
			continue
		}

		convertEmbeddingToFloat32(doc)
		doc[Score] = score

		results = append(results, doc)
	}

	return results, nil
}

// Delete removes a record by id. Missing ids are tolerated.
func (s *OpenSearchIndex) Delete(ctx context.Context, id string) error {
	resp, err := s.client.Document.Delete(ctx, opensearchapi.DocumentDeleteReq{
		Index:      s.indexName,
		DocumentID: id,
		Params:     opensearchapi.DocumentDeleteParams{Refresh: "true"},
	})
	if err != nil {
		if resp != nil && (isNotFound(resp.Inspect().Response) || resp.Result == "not_found") {
			return nil
		}
		return errors.Wrap(err, "delete document")
	}
	return nil
}

// isNotFound reports whether the raw response carries a 404 status.
func isNotFound(resp *opensearch.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}

// DeleteByQuery removes records matching the filters.
func (s *OpenSearchIndex) DeleteByQuery(ctx context.Context, filters map[string]any) (int, error) {
	body, _ := json.Marshal(map[string]any{"query": filterQuery(filters)})

	resp, err := s.client.Document.DeleteByQuery(ctx, opensearchapi.DocumentDeleteByQueryReq{
		Indices: []string{s.indexName},
		Body:    bytes.NewReader(body),
		Params:  opensearchapi.DocumentDeleteByQueryParams{Refresh: opensearchapi.ToPointer(true)},
	})
	if err != nil {
		return 0, errors.Wrap(err, "delete by query")
	}

	return resp.Deleted, nil
}

// Count counts records matching the filters.
func (s *OpenSearchIndex) Count(ctx context.Context, filters map[string]any) (int, error) {
	body, _ := json.Marshal(map[string]any{"query": filterQuery(filters)})

	resp, err := s.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{s.indexName},
		Body:    bytes.NewReader(body),
		Params: opensearchapi.SearchParams{
			Size:           opensearchapi.ToPointer(0),
			TrackTotalHits: true,
		},
	})
	if err != nil {
		return 0, errors.Wrap(err, "count")
	}

	return resp.Hits.Total.Value, nil
}

// Distinct returns distinct values of a field with record counts, using a
// terms aggregation.
func (s *OpenSearchIndex) Distinct(ctx context.Context, field string, filters map[string]any) (map[string]int, error) {
	body, _ := json.Marshal(map[string]any{
		"size":  0,
		"query": filterQuery(filters),
		"aggs": map[string]any{
			"distinct": map[string]any{
				"terms": map[string]any{"field": field, "size": 10000},
			},
		},
	})

	resp, err := s.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{s.indexName},
		Body:    bytes.NewReader(body),
	})
	if err != nil {
		return nil, errors.Wrap(err, "distinct")
	}

	var aggs struct {
		Distinct struct {
			Buckets []struct {
				Key      string `json:"key"`
				DocCount int    `json:"doc_count"`
			} `json:"buckets"`
		} `json:"distinct"`
	}
	if err := json.Unmarshal(resp.Aggregations, &aggs); err != nil {
		return nil, errors.Wrap(err, "parse aggregation")
	}

	values := make(map[string]int, len(aggs.Distinct.Buckets))
	for _, bucket := range aggs.Distinct.Buckets {
		if bucket.Key == "" {
			continue
		}
		values[bucket.Key] = bucket.DocCount
	}

	return values, nil
}

// Close closes the OpenSearch connection.
func (s *OpenSearchIndex) Close() error {
	return nil
}

// filterClauses builds term clauses from exact-match filters.
func filterClauses(filters map[string]any) []map[string]any {
	clauses := make([]map[string]any, 0, len(filters))
	for field, value := range filters {
		clauses = append(clauses, map[string]any{"term": map[string]any{field: value}})
	}
	return clauses
}

// filterQuery builds a bool filter query, or match_all for nil filters.
func filterQuery(filters map[string]any) map[string]any {
	clauses := filterClauses(filters)
	if len(clauses) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{"bool": map[string]any{"filter": clauses}}
}

// convertEmbeddingToFloat32 converts the embedding field from []any (the
// shape json.Unmarshal produces) back to []float32.
func convertEmbeddingToFloat32(doc map[string]any) {
	emb, ok := doc["embedding"].([]any)
	if !ok {
		return
	}

	embedding := make([]float32, len(emb))
	for i, v := range emb {
		if f, ok := v.(float64); ok {
			embedding[i] = float32(f)
		}
	}
	doc["embedding"] = embedding
}
