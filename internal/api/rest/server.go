package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hungtmh/online-auction-system-sub000/internal/infrastructure/config"
	"github.com/hungtmh/online-auction-system-sub000/internal/metrics"
)

// Server wraps the HTTP server and its middleware chain
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	logger     *slog.Logger
	pool       *pgxpool.Pool
	redis      *redis.Client
}

// ServerDeps bundles the server's collaborators
type ServerDeps struct {
	Config   *config.Config
	Handler  *Handler
	Logger   *slog.Logger
	Registry *metrics.Registry
	Pool     *pgxpool.Pool
	Redis    *redis.Client
}

// NewServer assembles the router, middleware chain, and http.Server
func NewServer(d ServerDeps) *Server {
	mux := http.NewServeMux()
	d.Handler.RegisterRoutes(mux)

	s := &Server{
		cfg:    d.Config,
		logger: d.Logger,
		pool:   d.Pool,
		redis:  d.Redis,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	chain := Chain(
		RecoveryMiddleware(d.Logger),
		RequestIDMiddleware(),
		LoggingMiddleware(d.Logger),
		MetricsMiddleware(d.Registry),
		NewRedisRateLimiter(d.Redis, d.Config.Server.RateLimit).Middleware(),
	)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", d.Config.Server.Port),
		Handler:      chain(mux),
		ReadTimeout:  d.Config.Server.ReadTimeout,
		WriteTimeout: d.Config.Server.WriteTimeout,
	}
	return s
}

// Start begins serving; it blocks until the server stops
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// handleHealth reports liveness of the server and its backends. A
// degraded backend yields 503 so the orchestrator can rotate the pod.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{"database": "ok", "redis": "ok"}

	if err := s.pool.Ping(ctx); err != nil {
		checks["database"] = "unreachable"
		status = http.StatusServiceUnavailable
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = "unreachable"
		status = http.StatusServiceUnavailable
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"status":%q,"database":%q,"redis":%q}`,
		overall, checks["database"], checks["redis"])
}
