package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/additivelens/additivelens/internal/catalog"
	"github.com/additivelens/additivelens/internal/model"
)

// SearchRequest is the body of POST /v1/search
type SearchRequest struct {
	Text *string `json:"text"`
}

// SearchResponse is the answer of POST /v1/search
type SearchResponse struct {
	Results []model.MatchResult `json:"results"`
}

// HealthResponse is the answer of GET /healthz
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Uptime   string `json:"uptime"`
	OCR      string `json:"ocr,omitempty"`
	Catalog  string `json:"catalog,omitempty"`
	Entries  int    `json:"entries"`
	Degraded bool   `json:"degraded"`
}

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: s.deps.Version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	}
	if s.deps.Scanner != nil {
		resp.OCR = s.deps.Scanner.Provider()
	}
	if s.deps.Catalog != nil {
		stats := s.deps.Catalog.Stats()
		resp.Catalog = stats.State
		resp.Entries = stats.Entries
		resp.Degraded = stats.Origin != "" && stats.Origin != string(catalog.OriginLive)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleSearch searches typed or pre-recognized text. A null or missing text
// is searched as the empty string.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSearchBody)

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeRequestError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeRequestError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	text := ""
	if req.Text != nil {
		text = *req.Text
	}

	results := s.deps.Searcher.Search(r.Context(), text)
	if results == nil {
		results = []model.MatchResult{}
	}

	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// handleScan accepts a multipart form with the label photo in field "image"
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.deps.Scanner == nil || s.deps.Scanner.Provider() == "" {
		writeRequestError(w, r, http.StatusServiceUnavailable, "OCR is not configured")
		return
	}

	limit := s.deps.MaxImageBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeRequestError(w, r, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		writeRequestError(w, r, http.StatusBadRequest, "multipart field \"image\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeRequestError(w, r, http.StatusBadRequest, "read image: "+err.Error())
		return
	}
	if int64(len(data)) > limit {
		writeRequestError(w, r, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	report := s.deps.Scanner.ScanImage(r.Context(), data, header.Header.Get("Content-Type"))
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCatalogStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		writeRequestError(w, r, http.StatusServiceUnavailable, "catalog not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Catalog.Stats())
}

// handleCatalogReload forces the next catalog read to hit the source and
// waits for it
func (s *Server) handleCatalogReload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		writeRequestError(w, r, http.StatusServiceUnavailable, "catalog not configured")
		return
	}

	if _, err := s.deps.Catalog.Reload(r.Context()); err != nil {
		writeRequestError(w, r, http.StatusGatewayTimeout, "reload: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.deps.Catalog.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeRequestError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, RequestID: RequestIDFrom(r.Context())})
}
