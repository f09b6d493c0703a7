// Package http exposes the ledger as a JSON API with a CSV download.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"
)

const maxBodyBytes = 1 << 20

type Server struct {
	http.Server
	svc            *services.LedgerService
	logger         *log.Logger
	metricsEnabled bool
}

type Option func(*Server)

// WithMetrics mounts the Prometheus handler on /metrics.
func WithMetrics(enabled bool) Option {
	return func(s *Server) { s.metricsEnabled = enabled }
}

func NewServer(addr string, svc *services.LedgerService, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	s := &Server{
		svc:    svc,
		logger: logger.WithComponent(log.ComponentHTTP),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(trace.NewMiddleware(s.logger).Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", s.handleReady)
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/groups", s.handleListGroups)
		r.Post("/reset", s.handleReset)

		r.Route("/groups/{group}", func(r chi.Router) {
			r.Get("/", s.handleGetGroup)
			r.Put("/name", s.handleRenameGroup)
			r.Post("/categories/{type}", s.handleAddCategory)
			r.Delete("/categories/{type}/{name}", s.handleRemoveCategory)
			r.Get("/transactions", s.handleListTransactions)
			r.Post("/transactions", s.handleAddTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)
			r.Get("/export.csv", s.handleExport)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc == nil {
		writeError(w, http.StatusServiceUnavailable, "ledger not loaded")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"groups": len(s.svc.Groups()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeServiceError maps service and domain errors to a status code. Save
// failures and anything unexpected become 500 without leaking details.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		re *requestError
		ve *core.ValidationError
	)
	switch {
	case errors.As(err, &re):
		writeJSON(w, re.status, errorBody{Error: re.msg, Field: re.field})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: ve.Err.Error(), Field: ve.Field})
	case errors.Is(err, services.ErrGroupNotFound), errors.Is(err, core.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
