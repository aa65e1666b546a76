package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-club-bot/internal/config"
	"telegram-club-bot/internal/infra/metrics"
	"telegram-club-bot/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Server exposes the operational surface: liveness and Prometheus metrics.
type Server struct {
	cfg    *config.HTTPConfig
	pool   *pgxpool.Pool
	cache  redis.RedisClient
	server *http.Server
	log    *zerolog.Logger
}

func NewServer(cfg *config.HTTPConfig, pool *pgxpool.Pool, cache redis.RedisClient, logger *zerolog.Logger) *Server {
	compLog := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{cfg: cfg, pool: pool, cache: cache, log: &compLog}
}

func (s *Server) Start() error {
	metrics.MustRegister()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: r,
	}
	s.log.Info().Int("port", s.cfg.Port).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.pool != nil {
		if err := s.pool.Ping(ctx); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
	}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			http.Error(w, "cache unreachable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}
