// Package http serves a tree engine over HTTP: run streaming via SSE,
// tree introspection, and runlog-backed history.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/observability"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/aretw0/canopy/pkg/runlog"
	"github.com/aretw0/canopy/pkg/schema"
)

// Server exposes a ports.Engine over HTTP.
type Server struct {
	engine   ports.Engine
	store    ports.RunStore
	metrics  *observability.Collector
	logger   *slog.Logger
	validate bool
}

// Option configures the Server.
type Option func(*Server)

// WithStore enables run recording and the history endpoints.
func WithStore(store ports.RunStore) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithMetrics attaches a metrics collector: streams are tapped and
// /metrics is mounted.
func WithMetrics(collector *observability.Collector) Option {
	return func(s *Server) {
		s.metrics = collector
	}
}

// WithServerLogger sets the request/diagnostic logger.
func WithServerLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRequestValidation enforces the embedded OpenAPI document against
// incoming requests.
func WithRequestValidation(enabled bool) Option {
	return func(s *Server) {
		s.validate = enabled
	}
}

// NewServer creates a Server for engine.
func NewServer(engine ports.Engine, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the chi router. It fails only when request validation
// is enabled and the embedded OpenAPI document does not load.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(corsMiddleware)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	api := func(r chi.Router) {
		r.Post("/runs", s.handleRun)
		r.Get("/tree", s.handleTree)
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{id}", s.handleRunLog)
	}

	if s.validate {
		validator, err := newRequestValidator()
		if err != nil {
			return nil, fmt.Errorf("request validation setup: %w", err)
		}
		r.Route("/api/v1", func(r chi.Router) {
			r.Use(validator)
			api(r)
		})
	} else {
		r.Route("/api/v1", api)
	}

	return r, nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// handleRun starts a run and relays its events as SSE, one data frame
// per schema envelope, flushed per event so frame order is stream order.
// Closing the request context cancels the run.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	var spec ports.RunSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		s.logger.Warn("run request rejected", "err", err)
		return
	}
	if spec.Prompt == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return
	}

	runID := uuid.NewString()
	ctx := r.Context()

	events := s.engine.Execute(ctx, spec)
	if s.metrics != nil {
		events = s.metrics.Tap(ctx, events)
	}
	if s.store != nil {
		rec := runlog.NewRecorder(s.store, runlog.WithLogger(s.logger))
		events = rec.Record(ctx, runID, events)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Run-Id", runID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		data, err := schema.Encode(ev)
		if err != nil {
			s.logger.Error("event encode failed, dropping frame", "err", err)
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
	s.logger.Info("run stream closed", "run_id", runID)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Inspect())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "run history not configured", http.StatusNotImplemented)
		return
	}
	runs, err := s.store.Runs(r.Context())
	if err != nil {
		http.Error(w, "failed to list runs", http.StatusInternalServerError)
		s.logger.Error("runs listing failed", "err", err)
		return
	}
	if runs == nil {
		runs = []domain.RunInfo{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// stepRecordJSON is the transport shape of one runlog record.
type stepRecordJSON struct {
	Seq   int             `json:"seq"`
	At    time.Time       `json:"at"`
	Event json.RawMessage `json:"event"`
}

func (s *Server) handleRunLog(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "run history not configured", http.StatusNotImplemented)
		return
	}
	runID := chi.URLParam(r, "id")
	records, err := s.store.List(r.Context(), runID)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load run", http.StatusInternalServerError)
		s.logger.Error("run load failed", "run_id", runID, "err", err)
		return
	}

	out := make([]stepRecordJSON, 0, len(records))
	for _, rec := range records {
		envelope, err := schema.Encode(rec.Event)
		if err != nil {
			s.logger.Error("record encode failed", "run_id", runID, "seq", rec.Seq, "err", err)
			continue
		}
		out = append(out, stepRecordJSON{Seq: rec.Seq, At: rec.At, Event: envelope})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
