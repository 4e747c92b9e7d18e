// SPDX-License-Identifier: MIT

// Package api exposes the HTTP front end: one pricing endpoint plus health
// and metrics. Status-code mapping of the cache error taxonomy lives here;
// everything below speaks errors, not status codes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/stayware/rategate/internal/coalesce"
	"github.com/stayware/rategate/internal/pricing"
)

// Pricer is the surface the handlers need; *pricing.Service implements it.
type Pricer interface {
	FetchPricing(ctx context.Context, attrs []pricing.Attributes) ([]pricing.Rate, error)
}

// HealthChecker reports whether the shared store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server carries the handler dependencies.
type Server struct {
	pricer Pricer
	health HealthChecker
	logger zerolog.Logger
}

// NewServer creates the HTTP server wiring.
func NewServer(pricer Pricer, health HealthChecker, logger zerolog.Logger) *Server {
	return &Server{
		pricer: pricer,
		health: health,
		logger: logger,
	}
}

// Router builds the chi router with the canonical middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(httprate.LimitByIP(300, time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/api/pricing", s.handlePricing)

	return r
}

type pricingRequest struct {
	Attributes []pricing.Attributes `json:"attributes"`
}

type pricingResponse struct {
	Rates []pricing.Rate `json:"rates"`
}

func (s *Server) handlePricing(w http.ResponseWriter, r *http.Request) {
	var req pricingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	rates, err := s.pricer.FetchPricing(r.Context(), req.Attributes)
	if err != nil {
		s.writePricingError(w, err)
		return
	}
	if rates == nil {
		rates = []pricing.Rate{}
	}

	writeJSON(w, http.StatusOK, pricingResponse{Rates: rates})
}

// writePricingError maps the cache error taxonomy onto status codes.
func (s *Server) writePricingError(w http.ResponseWriter, err error) {
	var se *pricing.StatusError

	switch {
	case errors.Is(err, coalesce.ErrUnavailable):
		writeServiceUnavailable(w, "pricing is temporarily unavailable, please retry shortly")
	case errors.Is(err, coalesce.ErrWaitTimeout):
		writeServiceUnavailable(w, "pricing did not respond in time, please retry shortly")
	case errors.As(err, &se):
		s.logger.Warn().Int("status", se.Code).Msg("upstream pricing error")
		writeBadGateway(w, "upstream pricing error")
	default:
		s.logger.Error().Err(err).Msg("pricing request failed")
		writeInternalError(w)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.health.Ping(ctx); err != nil {
		writeServiceUnavailable(w, "store unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs one line per request with latency and status.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
