package server

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/devraulu/normurl/pkg/batch"
	"github.com/devraulu/normurl/pkg/normalize"
	"github.com/devraulu/normurl/pkg/storage"
)

//go:embed templates/*
var templates embed.FS

const maxBatch = 1000

type Server struct {
	n      *normalize.Normalizer
	store  storage.Storage
	runner *batch.Runner
	tmpl   *template.Template
}

type normalizeResponse struct {
	Input      string `json:"input"`
	Normalized string `json:"normalized,omitempty"`
	Error      string `json:"error,omitempty"`
}

type batchRequest struct {
	URLs []string `json:"urls"`
}

type batchResponse struct {
	Results   []normalizeResponse `json:"results"`
	Processed int                 `json:"processed"`
	Errored   int                 `json:"errored"`
}

type recordResponse struct {
	Original   string `json:"original"`
	Normalized string `json:"normalized"`
	Host       string `json:"host"`
	FirstSeen  string `json:"first_seen"`
	LastSeen   string `json:"last_seen"`
	SeenCount  int    `json:"seen_count"`
}

type indexPage struct {
	Input      string
	Normalized string
	Error      string
}

// New returns the HTTP handler. store may be nil, in which case the
// registry endpoints answer 501.
func New(n *normalize.Normalizer, store storage.Storage, workers int) http.Handler {
	s := &Server{
		n:      n,
		store:  store,
		runner: &batch.Runner{Normalizer: n, Workers: workers},
		tmpl:   template.Must(template.ParseFS(templates, "templates/*.html")),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /normalize", s.handleNormalize)
	mux.HandleFunc("POST /normalize", s.handleBatch)
	mux.HandleFunc("GET /lookup", s.handleLookup)
	mux.HandleFunc("GET /hosts", s.handleHosts)
	mux.HandleFunc("GET /hosts/{host}", s.handleHostURLs)
	return logRequests(mux)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Info("request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := indexPage{Input: r.URL.Query().Get("url")}
	if page.Input != "" {
		normalized, err := s.n.Normalize(page.Input)
		if err != nil {
			page.Error = err.Error()
		} else {
			page.Normalized = normalized
		}
	}

	if err := s.tmpl.ExecuteTemplate(w, "index.html", page); err != nil {
		slog.Error("render index failed", slog.Any("err", err))
	}
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("url")
	if input == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}

	normalized, err := s.n.Normalize(input)
	if err != nil {
		slog.Debug("normalize failed", slog.String("url", input), slog.Any("err", err))
		writeJSON(w, http.StatusBadRequest, normalizeResponse{Input: input, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, normalizeResponse{Input: input, Normalized: normalized})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.URLs) > maxBatch {
		writeError(w, http.StatusRequestEntityTooLarge, "too many urls, limit is "+strconv.Itoa(maxBatch))
		return
	}

	results, stats := s.runner.Run(r.Context(), req.URLs)

	resp := batchResponse{
		Results:   make([]normalizeResponse, len(results)),
		Processed: stats.Processed,
		Errored:   stats.Errored,
	}
	for i, res := range results {
		resp.Results[i] = normalizeResponse{Input: res.Input, Normalized: res.Normalized}
		if res.Error != nil {
			resp.Results[i].Error = res.Error.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "no registry configured")
		return
	}

	input := r.URL.Query().Get("url")
	normalized, err := s.n.Normalize(input)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.store.Lookup(r.Context(), normalized)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found: "+normalized)
		return
	}
	if err != nil {
		slog.Error("lookup failed", slog.String("url", normalized), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (s *Server) handleHosts(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "no registry configured")
		return
	}

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	hosts, err := s.store.TopHosts(r.Context(), limit)
	if err != nil {
		slog.Error("top hosts failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	type hostCount struct {
		Host  string `json:"host"`
		Count int    `json:"count"`
	}
	out := make([]hostCount, len(hosts))
	for i, h := range hosts {
		out[i] = hostCount{Host: h.Host, Count: h.Count}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHostURLs(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "no registry configured")
		return
	}

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	host := r.PathValue("host")
	records, err := s.store.ListByHost(r.Context(), host, limit)
	if err != nil {
		slog.Error("list by host failed", slog.String("host", host), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	out := make([]recordResponse, len(records))
	for i, rec := range records {
		out[i] = toRecordResponse(rec)
	}
	writeJSON(w, http.StatusOK, out)
}

// parseLimit reads ?limit, defaulting to 50. It writes a 400 and returns
// false when the value is not a positive integer.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 50, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return n, true
}

func toRecordResponse(rec storage.Record) recordResponse {
	return recordResponse{
		Original:   rec.Original,
		Normalized: rec.Normalized,
		Host:       rec.Host,
		FirstSeen:  rec.FirstSeen.UTC().Format(http.TimeFormat),
		LastSeen:   rec.LastSeen.UTC().Format(http.TimeFormat),
		SeenCount:  rec.SeenCount,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", slog.Any("err", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
