// Package httpadapter exposes the document pipeline over HTTP: uploads,
// read models, replay, natural-language search, and signed file serving.
package httpadapter

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/avelinsk/finpaper/internal/core/domain"
	"github.com/avelinsk/finpaper/internal/core/ports"
	"github.com/avelinsk/finpaper/internal/observability/metrics"
)

const (
	organizationHeader = "X-Organization-Id"

	defaultListLimit = 50
	maxListLimit     = 100
)

// FileStore serves stored blobs behind signature verification.
type FileStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Verify(key string, expires int64, signature string) error
}

type Deps struct {
	Ingestor    ports.DocumentIngestor
	Reprocessor ports.DocumentReprocessor
	Searcher    ports.DocumentSearcher
	Repo        ports.DocumentRepository
	Files       FileStore
	Metrics     *metrics.HTTPServerMetrics

	RateLimitRPS   float64
	RateLimitBurst int
	MaxConcurrent  int
}

type Router struct {
	deps Deps
}

func NewRouter(deps Deps) *Router {
	return &Router{deps: deps}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/documents", rt.listDocuments)
	mux.HandleFunc("GET /v1/documents/stats", rt.documentStats)
	mux.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	mux.HandleFunc("POST /v1/documents/{id}/reprocess", rt.reprocessDocument)
	mux.HandleFunc("POST /v1/search", rt.searchDocuments)
	mux.HandleFunc("GET /files/{key...}", rt.serveFile)
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.deps.MaxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.deps.MaxConcurrent, 100*time.Millisecond)
	}
	if rt.deps.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.deps.RateLimitRPS, rt.deps.RateLimitBurst)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware("api", handler)
	}
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	organizationID := organizationFrom(r)
	if organizationID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("header "+organizationHeader+" is required"))
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("multipart field 'file' is required"))
		return
	}
	defer file.Close()

	mimeType := fileHeader.Header.Get("Content-Type")
	doc, err := rt.deps.Ingestor.Upload(
		r.Context(),
		organizationID,
		fileHeader.Filename,
		mimeType,
		fileHeader.Size,
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordUpload("api", mimeType, doc.FileSize)
	}
	writeJSON(w, http.StatusAccepted, viewOf(*doc))
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	organizationID := organizationFrom(r)
	if organizationID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("header "+organizationHeader+" is required"))
		return
	}

	filter := domain.DocumentFilter{
		Status: domain.DocumentStatus(r.URL.Query().Get("status")),
		Type:   domain.DocumentType(r.URL.Query().Get("document_type")),
	}
	limit := queryInt(r, "limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	docs, err := rt.deps.Repo.List(r.Context(), organizationID, filter, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": viewsOf(docs),
		"limit":     limit,
		"offset":    offset,
	})
}

func (rt *Router) documentStats(w http.ResponseWriter, r *http.Request) {
	organizationID := organizationFrom(r)
	if organizationID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("header "+organizationHeader+" is required"))
		return
	}

	stats, err := rt.deps.Repo.Stats(r.Context(), organizationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	organizationID := organizationFrom(r)
	if organizationID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("header "+organizationHeader+" is required"))
		return
	}

	doc, err := rt.deps.Repo.GetForOrganization(r.Context(), organizationID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(*doc))
}

func (rt *Router) reprocessDocument(w http.ResponseWriter, r *http.Request) {
	organizationID := organizationFrom(r)
	if organizationID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("header "+organizationHeader+" is required"))
		return
	}

	outcome, err := rt.deps.Reprocessor.Reprocess(r.Context(), organizationID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if outcome.Replayed {
		status = http.StatusAccepted
	}
	writeJSON(w, status, outcome)
}

func (rt *Router) searchDocuments(w http.ResponseWriter, r *http.Request) {
	organizationID := organizationFrom(r)
	if organizationID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("header "+organizationHeader+" is required"))
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query is required"))
		return
	}

	start := time.Now()
	result := rt.deps.Searcher.Search(r.Context(), req.Query, organizationID)
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordSearch("api", result.Success, result.Found, time.Since(start))
	}

	// Search failures are part of the result contract, not HTTP errors.
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) serveFile(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("file key is required"))
		return
	}

	expires, err := strconv.ParseInt(r.URL.Query().Get("expires"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'expires' is required"))
		return
	}
	signature := r.URL.Query().Get("signature")
	if signature == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'signature' is required"))
		return
	}

	if err := rt.deps.Files.Verify(key, expires, signature); err != nil {
		writeJSON(w, http.StatusForbidden, errorBody("signature rejected"))
		return
	}

	reader, err := rt.deps.Files.Open(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, no-store")
	_, _ = io.Copy(w, reader)
}

// documentView decorates a document with the display labels the read
// model exposes alongside the raw enums.
type documentView struct {
	domain.Document
	StatusLabel string `json:"status_label"`
	TypeLabel   string `json:"document_type_label,omitempty"`
}

func viewOf(doc domain.Document) documentView {
	view := documentView{
		Document:    doc,
		StatusLabel: domain.StatusLabels[doc.Status],
	}
	if doc.DocumentType != nil {
		view.TypeLabel = domain.TypeLabels[*doc.DocumentType]
	}
	return view
}

func viewsOf(docs []domain.Document) []documentView {
	views := make([]documentView, 0, len(docs))
	for _, doc := range docs {
		views = append(views, viewOf(doc))
	}
	return views
}

func organizationFrom(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(organizationHeader))
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
