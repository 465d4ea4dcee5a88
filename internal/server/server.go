package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/crossodds/internal/domain"
	"github.com/alanyoungcy/crossodds/internal/server/handler"
	"github.com/alanyoungcy/crossodds/internal/server/middleware"
	"github.com/alanyoungcy/crossodds/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	CORSMaxAge  time.Duration // preflight cache lifetime; zero omits the header
	APIKey      string        // if empty, authentication is disabled
	// RateLimit is requests per minute per client IP; zero disables it.
	RateLimit int
}

// Handlers aggregates the HTTP handlers the server registers. Nil
// optional handlers leave their routes unregistered.
type Handlers struct {
	Health        *handler.HealthHandler
	Status        *handler.StatusHandler
	Opportunities *handler.OpportunityHandler
	Cycles        *handler.CycleHandler
	Archive       *handler.ArchiveHandler // optional
	Metrics       http.Handler            // optional
}

// Server is the dashboard HTTP + WebSocket API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on a ServeMux and
// the middleware chain applied. limiter and wsHub may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "http"))
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      NewHandler(cfg, handlers, wsHub, limiter, logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler builds the routed, middleware-wrapped handler.
func NewHandler(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	mux.HandleFunc("GET /api/opportunities", handlers.Opportunities.List)
	mux.HandleFunc("GET /api/opportunities/{id}", handlers.Opportunities.Get)
	mux.HandleFunc("GET /api/cycles", handlers.Cycles.List)

	if handlers.Archive != nil {
		mux.HandleFunc("GET /api/archive", handlers.Archive.List)
		mux.HandleFunc("GET /api/archive/{path...}", handlers.Archive.Download)
	}
	if handlers.Metrics != nil {
		mux.Handle("GET /metrics", handlers.Metrics)
	}
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey, "/api/health", "/metrics")(h)
	h = middleware.RateLimit(limiter, cfg.RateLimit, time.Minute, logger)(h)
	h = middleware.Logging(logger, "/api/health", "/api/status", "/metrics")(h)
	h = middleware.CORS(cfg.CORSOrigins, cfg.CORSMaxAge)(h)
	return h
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
