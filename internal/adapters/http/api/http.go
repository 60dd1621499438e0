// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/ecotrack/internal/domain/dedupe"
	"github.com/okian/ecotrack/pkg/logger"
)

const (
	defaultHistoryLimit    = 20
	defaultMaxHistoryLimit = 100
	defaultUpdateRate      = 20
	defaultUpdateBurst     = 40
	defaultIdempotencySize = 10000
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	GamificationDependencies
	FootprintDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	gamificationHandler *GamificationHandler
	footprintHandler    *FootprintHandler

	updateLimiter *RateLimiter
	cors          *CORSMiddleware

	allowedOrigins  []string
	maxHistoryLimit int
	updateRate      float64
	updateBurst     int
	idempotencySize int
	logger          logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets the logger used by the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxHistoryLimit caps the limit accepted by the history endpoint.
func WithMaxHistoryLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxHistoryLimit = n
		}
	}
}

// WithUpdateRateLimit sets the per-client token bucket of the update endpoint.
func WithUpdateRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond > 0 && burst > 0 {
			s.updateRate = perSecond
			s.updateBurst = burst
		}
	}
}

// WithIdempotencyCacheSize sets how many Idempotency-Key results are kept.
// Zero disables Idempotency-Key handling.
func WithIdempotencyCacheSize(n int) Option {
	return func(s *Server) {
		if n >= 0 {
			s.idempotencySize = n
		}
	}
}

// WithAllowedOrigins sets the CORS origins; "*" allows any.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		allowedOrigins:  []string{"*"},
		maxHistoryLimit: defaultMaxHistoryLimit,
		updateRate:      defaultUpdateRate,
		updateBurst:     defaultUpdateBurst,
		idempotencySize: defaultIdempotencySize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}

	var deduper dedupe.Deduper
	if s.idempotencySize > 0 {
		deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.idempotencySize))
	}
	s.updateLimiter = NewRateLimiter(s.updateRate, s.updateBurst, s.logger)

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider, deduper, s.updateLimiter)
	s.gamificationHandler = NewGamificationHandler(deps, deduper, s.logger, s.maxHistoryLimit)
	s.footprintHandler = NewFootprintHandler(deps, s.logger)
	s.cors = NewCORSMiddleware(s.allowedOrigins)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	g, f := s.gamificationHandler, s.footprintHandler

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("/api/gamification", MetricsMiddleware(g.HandleGetStatus, "gamification"))
	mux.HandleFunc("/api/gamification/update",
		MetricsMiddleware(s.updateLimiter.Limit(g.HandleUpdate, "gamification_update"), "gamification_update"))
	mux.HandleFunc("/api/gamification/history", MetricsMiddleware(g.HandleHistory, "gamification_history"))

	mux.HandleFunc("/api/category/pie", MetricsMiddleware(f.HandleCategoryPie, "category_pie"))
	mux.HandleFunc("/api/weekly/total", MetricsMiddleware(f.HandleWeeklyTotal, "weekly_total"))
	mux.HandleFunc("/api/daily_breakdown", MetricsMiddleware(f.HandleDailyBreakdown, "daily_breakdown"))
	mux.HandleFunc("/api/total_co2", MetricsMiddleware(f.HandleTotalCO2, "total_co2"))
}

// Handler wraps next with the cross-cutting middleware shared by every route.
func (s *Server) Handler(next http.Handler) http.Handler {
	return RequestID(s.cors.Handler(next))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: publicMessage(err, http.StatusText(status))})
}

// fail logs err with the request id and writes the error response.
func fail(ctx context.Context, log logger.Logger, w http.ResponseWriter, status int, err error) {
	fields := []logger.Field{
		logger.String("request_id", RequestIDFromContext(ctx)),
		logger.Int("status", status),
		logger.Error(err),
	}
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", fields...)
	} else {
		log.Debug(ctx, "request rejected", fields...)
	}
	writeError(w, status, err)
}
