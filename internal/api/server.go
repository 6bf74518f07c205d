// Package api exposes the operational HTTP interface: health probes, the
// Prometheus endpoint and manual job triggers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kinoradar/signal-pipeline/internal/metrics"
	"github.com/kinoradar/signal-pipeline/internal/radar"
)

const enqueueTimeout = 5 * time.Second

// Config controls server middleware behavior.
type Config struct {
	// APIKey, when non-empty, gates the /v1 routes behind an X-API-Key check.
	APIKey string
	// RequestTimeout bounds handler execution. Zero means 60s.
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the job queue.
type Server struct {
	router chi.Router
	queue  radar.Queue
	clock  radar.Clock
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(queue radar.Queue, clock radar.Clock, cfg Config, logger *zap.Logger) *Server {
	s := &Server{queue: queue, clock: clock, logger: logger}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(timeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.APIKey != "" {
			r.Use(apiKeyMiddleware(cfg.APIKey))
		}
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/collect/all", s.triggerCollectAll)
			r.Post("/collect/{source_type}", s.triggerCollectByType)
			r.Post("/classify", s.triggerClassify)
			r.Post("/update-metrics", s.triggerUpdateMetrics)
		})
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

func (s *Server) triggerCollectAll(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, radar.Job{Name: radar.JobCollectAll})
}

func (s *Server) triggerCollectByType(w http.ResponseWriter, r *http.Request) {
	t := radar.SourceType(chi.URLParam(r, "source_type"))
	if !validSourceType(t) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown source type %q", t))
		return
	}
	s.submit(w, r, radar.Job{Name: radar.JobCollectByType, SourceType: t})
}

type classifyRequest struct {
	BatchSize int `json:"batch_size"`
}

func (s *Server) triggerClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}
	if req.BatchSize < 0 {
		writeError(w, http.StatusBadRequest, "batch_size must be positive")
		return
	}
	s.submit(w, r, radar.Job{Name: radar.JobClassifyBatch, BatchSize: req.BatchSize})
}

func (s *Server) triggerUpdateMetrics(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, radar.Job{Name: radar.JobUpdateMetrics})
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, job radar.Job) {
	job.ID = uuid.NewString()
	job.Submitted = s.clock.Now()

	ctx, cancel := context.WithTimeout(r.Context(), enqueueTimeout)
	defer cancel()
	jobID, err := s.queue.Enqueue(ctx, job)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusRequestTimeout
		}
		s.logger.Error("enqueue failed", zap.String("job", string(job.Name)), zap.Error(err))
		writeError(w, status, "failed to enqueue job")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func validSourceType(t radar.SourceType) bool {
	switch t {
	case radar.SourceNews, radar.SourceRatings, radar.SourceSchedule,
		radar.SourceChannel, radar.SourceCinemaChain, radar.SourceBoxOffice:
		return true
	}
	return false
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

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
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
