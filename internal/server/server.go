// Package server exposes the HTTP/JSON surface over the ingestion, review
// and export services.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/labelworks/doclabel/internal/export"
	"github.com/labelworks/doclabel/internal/ingest"
	"github.com/labelworks/doclabel/internal/review"
)

// Server routes API requests to the underlying services.
type Server struct {
	ingest *ingest.Service
	review *review.Service
	export *export.Service
	ping   func(context.Context) error
	logger *slog.Logger
	router *mux.Router
}

// New builds the server and its routes. ping is the store liveness probe
// used by the health endpoint; it may be nil.
func New(ing *ingest.Service, rev *review.Service, exp *export.Service, ping func(context.Context) error, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ingest: ing,
		review: rev,
		export: exp,
		ping:   ping,
		logger: logger,
	}

	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/files").Subrouter()
	api.HandleFunc("", s.handleListFiles).Methods(http.MethodGet)
	api.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/{fileId}", s.handleGetFile).Methods(http.MethodGet)
	api.HandleFunc("/{fileId}/keyValuePairs", s.handlePatchKeyValuePairs).Methods(http.MethodPatch)
	api.HandleFunc("/{fileId}/tables", s.handlePatchTables).Methods(http.MethodPatch)
	api.HandleFunc("/{fileId}/approve", s.handleApprove).Methods(http.MethodPatch)
	api.HandleFunc("/{fileId}/export", s.handleExport).Methods(http.MethodGet)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}
