// Package api exposes the HTTP interface for the crawler service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adpick/place-crawler/internal/crawl"
	"github.com/adpick/place-crawler/internal/telemetry"
)

// Crawler is the inbound surface the server drives.
type Crawler interface {
	Crawl(ctx context.Context, req crawl.Request) crawl.Outcome
}

// Server wires HTTP handlers to the crawl service and record store.
type Server struct {
	router  chi.Router
	crawler Crawler
	records crawl.RecordStore
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(crawler Crawler, records crawl.RecordStore, requestTimeout time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if requestTimeout <= 0 {
		requestTimeout = 90 * time.Second
	}
	s := &Server{
		crawler: crawler,
		records: records,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(telemetry.Middleware)
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/crawl", s.handleCrawl)
		r.Get("/records", s.handleListRecords)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type crawlRequest struct {
	URL      string `json:"url"`
	Platform string `json:"platform,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Options  struct {
		TimeoutMs    int  `json:"timeout_ms,omitempty"`
		MaxRetries   *int `json:"max_retries,omitempty"`
		DebugCapture bool `json:"debug_capture,omitempty"`
		BypassCache  bool `json:"bypass_cache,omitempty"`
	} `json:"options"`
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	opts := crawl.Options{
		Timeout:      time.Duration(req.Options.TimeoutMs) * time.Millisecond,
		MaxRetries:   -1,
		DebugCapture: req.Options.DebugCapture,
		BypassCache:  req.Options.BypassCache,
	}
	if req.Options.MaxRetries != nil {
		opts.MaxRetries = *req.Options.MaxRetries
	}

	outcome := s.crawler.Crawl(r.Context(), crawl.Request{
		RawURL:       req.URL,
		PlatformHint: crawl.Platform(req.Platform),
		ClientID:     req.ClientID,
		Options:      opts,
	})

	writeJSON(w, statusFor(outcome), outcome)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "client_id is required")
		return
	}
	if s.records == nil {
		writeError(w, http.StatusNotImplemented, "record listing is not configured")
		return
	}
	records, err := s.records.ListRecords(r.Context(), clientID)
	if err != nil {
		s.logger.Error("list records failed", zap.String("client_id", clientID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}
	if records == nil {
		records = []crawl.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

// statusFor maps a crawl outcome to an HTTP status. Bad input is the
// caller's fault; everything else failed downstream of us.
func statusFor(outcome crawl.Outcome) int {
	if outcome.Success {
		return http.StatusOK
	}
	switch outcome.ErrorKind {
	case crawl.ErrKindInvalidInput:
		return http.StatusBadRequest
	case crawl.ErrKindPersistence:
		return http.StatusInternalServerError
	}
	return http.StatusBadGateway
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
