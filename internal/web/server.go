// Package web serves the optional HTTP control surface: published fleet
// status, host metrics, command submission and a server-sent event stream.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/autorun/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/autorun/internal/events"
	"github.com/hugo-lorenzo-mato/autorun/internal/logging"
	"github.com/hugo-lorenzo-mato/autorun/internal/service/autorun"
	"github.com/hugo-lorenzo-mato/autorun/internal/web/sse"
)

// CommandPusher accepts raw command lines for the control loop.
type CommandPusher interface {
	Push(source, line string)
}

// Server is the HTTP control server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	config     Config
	logger     *logging.Logger

	status     autorun.StatusSource
	commands   CommandPusher
	eventBus   *events.EventBus
	system     *diagnostics.SystemMetricsCollector
	monitor    *diagnostics.ResourceMonitor
	sseHandler *sse.Handler
	limiter    *tokenBucket
}

// Config holds the server configuration.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	// CommandBurst and CommandRate bound POST /api/v1/commands. A zero rate
	// disables the limit.
	CommandBurst float64
	CommandRate  float64
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:8787",
		ReadTimeout:     15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		CommandBurst:    10,
		CommandRate:     2,
	}
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithStatus sets the published status source.
func WithStatus(src autorun.StatusSource) ServerOption {
	return func(s *Server) {
		s.status = src
	}
}

// WithCommands sets the command sink.
func WithCommands(p CommandPusher) ServerOption {
	return func(s *Server) {
		s.commands = p
	}
}

// WithEventBus enables the SSE stream.
func WithEventBus(bus *events.EventBus) ServerOption {
	return func(s *Server) {
		s.eventBus = bus
	}
}

// WithSystemMetrics sets the host metrics collector.
func WithSystemMetrics(c *diagnostics.SystemMetricsCollector) ServerOption {
	return func(s *Server) {
		s.system = c
	}
}

// WithMonitor attaches the resource monitor whose latest sample is served
// alongside host metrics.
func WithMonitor(m *diagnostics.ResourceMonitor) ServerOption {
	return func(s *Server) {
		s.monitor = m
	}
}

// New creates a server. Routes whose dependency is not configured answer
// 503.
func New(cfg Config, logger *logging.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	s := &Server{
		config:  cfg,
		logger:  logger.WithComponent("web"),
		limiter: newTokenBucket(cfg.CommandBurst, cfg.CommandRate, nil),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       cfg.IdleTimeout,
		// no WriteTimeout: the event stream is long-lived
	}
	return s
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	if len(s.config.CORSOrigins) > 0 {
		corsMiddleware := cors.New(cors.Options{
			AllowedOrigins: s.config.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		})
		r.Use(corsMiddleware.Handler)
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/topics", s.handleTopics)
		r.Get("/topics/{topicID}", s.handleTopic)
		r.Get("/system", s.handleSystem)
		r.Post("/commands", s.handleCommand)

		if s.eventBus != nil {
			s.sseHandler = sse.RegisterRoutes(r, s.eventBus)
		}
	})

	return r
}

// loggingMiddleware logs HTTP requests at debug level.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("web: listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	return s.Shutdown(context.Background())
}

// Shutdown disconnects stream clients and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if s.sseHandler != nil {
		s.sseHandler.Shutdown()
	}
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("web: stopped")
	return nil
}

// Router returns the underlying chi router.
func (s *Server) Router() chi.Router {
	return s.router
}
