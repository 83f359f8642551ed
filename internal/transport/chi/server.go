// Package chi exposes the evaluation service over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rankeval/internal/domain"
	"github.com/kailas-cloud/rankeval/internal/metrics"
	"github.com/kailas-cloud/rankeval/internal/usecase/benchmark"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server handles the HTTP API: evaluation of pre-computed result sets,
// health and metrics.
type Server struct {
	checkers      map[string]domain.HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. checkers are probed by the health
// endpoint, keyed by component name.
func NewServer(checkers map[string]domain.HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		checkers: checkers,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNoScoredQueries, http.StatusBadRequest, "no_scored_queries"),
		sentinelHandler(domain.ErrMalformedCachedResults, http.StatusBadRequest, "malformed_results"),
		sentinelHandler(domain.ErrInvalidScoreFunction, http.StatusBadRequest, "invalid_score_function"),
		sentinelHandler(domain.ErrUnsupportedModality, http.StatusBadRequest, "unsupported_modality"),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, "vector_dim_mismatch"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"),
	}
	return s
}

// Router builds the chi router with metrics middleware and optional Bearer auth.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(apiKeys))

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Post("/api/v1/evaluate", s.Evaluate)

	return r
}

// evaluateRequest carries a pre-computed result set and judgments to score.
type evaluateRequest struct {
	Qrels              domain.Qrels     `json:"qrels"`
	Results            domain.ResultSet `json:"results"`
	KValues            []int            `json:"k_values,omitempty"`
	IgnoreIdenticalIDs bool             `json:"ignore_identical_ids,omitempty"`
}

// Evaluate handles POST /api/v1/evaluate.
func (s *Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	if len(req.Qrels) == 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "qrels are required")
		return
	}
	if len(req.Results) == 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "results are required")
		return
	}
	for _, k := range req.KValues {
		if k <= 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "k_values must be positive")
			return
		}
	}

	opts := []benchmark.Option{benchmark.WithKValues(req.KValues)}
	if req.IgnoreIdenticalIDs {
		opts = append(opts, benchmark.WithIgnoreIdenticalIDs())
	}

	report, err := benchmark.New(nil, nil, opts...).Score(req.Qrels, req.Results)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK
	checks := make(map[string]string, len(s.checkers))

	for name, c := range s.checkers {
		if err := c.HealthCheck(r.Context()); err != nil {
			s.logger.Warn("Health check failed", zap.String("component", name), zap.Error(err))
			checks[name] = "error"
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNoScoredQueries,
		domain.ErrMalformedCachedResults,
		domain.ErrInvalidScoreFunction,
		domain.ErrUnsupportedModality,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
