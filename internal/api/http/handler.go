package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Zereker/docstore/internal/domain"
	"github.com/Zereker/docstore/internal/ingest"
	"github.com/Zereker/docstore/internal/service"
	"github.com/Zereker/docstore/pkg/log"
)

const defaultSearchK = 5

// Handler handles HTTP API requests.
type Handler struct {
	logger  *slog.Logger
	docs    *service.Service
	chunker *ingest.Chunker
}

// NewHandler creates a new HTTP handler.
func NewHandler(docs *service.Service, chunker *ingest.Chunker) *Handler {
	return &Handler{
		logger:  log.Logger("http.handler"),
		docs:    docs,
		chunker: chunker,
	}
}

// Response represents a standard API response.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Document operations
	mux.HandleFunc("POST /api/v1/documents", h.Add)
	mux.HandleFunc("POST /api/v1/documents/batch", h.AddBatch)
	mux.HandleFunc("POST /api/v1/documents/ingest", h.Ingest)
	mux.HandleFunc("PATCH /api/v1/documents/{id}", h.Update)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.Delete)
	mux.HandleFunc("POST /api/v1/documents/delete", h.DeleteBatch)
	mux.HandleFunc("DELETE /api/v1/documents", h.DeleteBySource)
	mux.HandleFunc("POST /api/v1/documents/clear", h.Clear)

	// Search and derived views
	mux.HandleFunc("POST /api/v1/documents/search", h.Search)
	mux.HandleFunc("GET /api/v1/documents/search", h.Search)
	mux.HandleFunc("GET /api/v1/documents/count", h.Count)
	mux.HandleFunc("GET /api/v1/documents/sources", h.Sources)
	mux.HandleFunc("GET /api/v1/documents/stats", h.Stats)

	// Health check
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// Add handles POST /api/v1/documents
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req domain.AddInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	doc, err := h.docs.AddDocument(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, "add failed", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, Response{Success: true, Data: doc})
}

// AddBatch handles POST /api/v1/documents/batch
func (h *Handler) AddBatch(w http.ResponseWriter, r *http.Request) {
	var req []domain.AddInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	results := h.docs.AddDocuments(r.Context(), req)

	added := 0
	for _, result := range results {
		if result.OK() {
			added++
		}
	}

	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]any{
			"added_count": added,
			"results":     results,
		},
	})
}

// ingestRequest is raw text to be chunked and indexed under one source.
type ingestRequest struct {
	Content  string         `json:"content"`
	Source   string         `json:"source"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Ingest handles POST /api/v1/documents/ingest
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	chunks := h.chunker.Chunk(req.Content)
	if len(chunks) == 0 {
		h.writeError(w, http.StatusBadRequest, "content must not be empty")
		return
	}

	inputs := make([]domain.AddInput, len(chunks))
	for i, chunk := range chunks {
		metadata := make(map[string]any, len(req.Metadata)+2)
		for k, v := range req.Metadata {
			metadata[k] = v
		}
		metadata["chunk_index"] = i
		metadata["chunk_size"] = len(chunk)

		inputs[i] = domain.AddInput{
			Content:  chunk,
			Source:   req.Source,
			Metadata: metadata,
		}
	}

	results := h.docs.AddDocuments(r.Context(), inputs)

	added := 0
	for _, result := range results {
		if result.OK() {
			added++
		}
	}

	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]any{
			"chunk_count": len(chunks),
			"added_count": added,
			"results":     results,
		},
	})
}

// Update handles PATCH /api/v1/documents/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	var req domain.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	doc, err := h.docs.UpdateDocument(r.Context(), id, req)
	if err != nil {
		h.writeDomainError(w, "update failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: doc})
}

// Delete handles DELETE /api/v1/documents/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	deleted, err := h.docs.DeleteDocument(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "delete failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]any{"id": id, "deleted": deleted},
	})
}

// deleteBatchRequest carries the ids for a batch delete.
type deleteBatchRequest struct {
	IDs []string `json:"ids"`
}

// DeleteBatch handles POST /api/v1/documents/delete
func (h *Handler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	var req deleteBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	results := h.docs.DeleteDocuments(r.Context(), req.IDs)

	deleted := 0
	for _, result := range results {
		if result.Deleted {
			deleted++
		}
	}

	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]any{
			"deleted_count": deleted,
			"results":       results,
		},
	})
}

// DeleteBySource handles DELETE /api/v1/documents?source=...
func (h *Handler) DeleteBySource(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		h.writeError(w, http.StatusBadRequest, "source query parameter is required")
		return
	}

	removed, err := h.docs.DeleteBySource(r.Context(), source)
	if err != nil {
		h.writeDomainError(w, "delete by source failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]any{"source": source, "deleted_count": removed},
	})
}

// Clear handles POST /api/v1/documents/clear
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	removed, err := h.docs.ClearCollection(r.Context())
	if err != nil {
		h.writeDomainError(w, "clear failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]any{"deleted_count": removed},
	})
}

// searchRequest is the caller-facing search shape.
type searchRequest struct {
	Query          string         `json:"query"`
	K              int            `json:"k"`
	Filter         map[string]any `json:"filter,omitempty"`
	IncludeScores  bool           `json:"include_scores"`
	ScoreThreshold float64        `json:"score_threshold,omitempty"`
}

// Search handles POST/GET /api/v1/documents/search
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest

	if r.Method == http.MethodGet {
		req.Query = r.URL.Query().Get("query")
		req.K, _ = strconv.Atoi(r.URL.Query().Get("k"))
		req.IncludeScores, _ = strconv.ParseBool(r.URL.Query().Get("include_scores"))
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	if req.K == 0 {
		req.K = defaultSearchK
	}

	domainReq := domain.SearchRequest{
		Query:          req.Query,
		K:              req.K,
		Filter:         req.Filter,
		ScoreThreshold: req.ScoreThreshold,
	}

	if req.IncludeScores {
		results, err := h.docs.SimilaritySearchWithScores(r.Context(), domainReq)
		if err != nil {
			h.writeDomainError(w, "search failed", err)
			return
		}
		h.writeJSON(w, http.StatusOK, Response{
			Success: true,
			Data:    map[string]any{"query": req.Query, "total_found": len(results), "results": results},
		})
		return
	}

	docs, err := h.docs.SimilaritySearch(r.Context(), domainReq)
	if err != nil {
		h.writeDomainError(w, "search failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]any{"query": req.Query, "total_found": len(docs), "results": docs},
	})
}

// Count handles GET /api/v1/documents/count
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.docs.GetDocumentCount(r.Context())
	if err != nil {
		h.writeDomainError(w, "count failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]int{"count": count}})
}

// Sources handles GET /api/v1/documents/sources
func (h *Handler) Sources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.docs.ListSources(r.Context())
	if err != nil {
		h.writeDomainError(w, "list sources failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]any{"sources": sources}})
}

// Stats handles GET /api/v1/documents/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.docs.GetStats(r.Context())
	if err != nil {
		h.writeDomainError(w, "stats failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: stats})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]string{
			"status": "healthy",
		},
	})
}

// writeDomainError maps the domain error taxonomy to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "error", err)

	status := http.StatusInternalServerError
	if e, ok := domain.AsError(err); ok {
		switch e.Kind {
		case domain.KindValidation:
			status = http.StatusBadRequest
		case domain.KindNotFound:
			status = http.StatusNotFound
		case domain.KindConflict:
			status = http.StatusConflict
		case domain.KindEmbedding, domain.KindStore:
			status = http.StatusBadGateway
		}
	}

	h.writeError(w, status, err.Error())
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, Response{
		Success: false,
		Error:   message,
	})
}
