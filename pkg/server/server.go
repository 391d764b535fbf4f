package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/restconnector/pkg/config"
	"mercator-hq/restconnector/pkg/connector"
	"mercator-hq/restconnector/pkg/server/middleware"
	"mercator-hq/restconnector/pkg/telemetry/health"
	"mercator-hq/restconnector/pkg/telemetry/metrics"
	"mercator-hq/restconnector/pkg/telemetry/tracing"
)

// MaxUpstreamFailures is the number of consecutive failed upstream requests
// after which the server reports itself not ready.
const MaxUpstreamFailures = 5

// Server exposes connector functions over HTTP.
type Server struct {
	config  *config.ServerConfig
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	version health.VersionInfo
	checker *health.Checker

	// routes holds the function routes of the current connector; Reload
	// swaps them without restarting the listener.
	routes atomic.Pointer[routes]

	httpServer   *http.Server
	listener     net.Listener
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records call metrics and serves them at the collector's path.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithTracer serves requests inside server spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(s *Server) {
		s.tracer = t
	}
}

// WithVersion sets the build information served at /version.
func WithVersion(info health.VersionInfo) Option {
	return func(s *Server) {
		s.version = info
	}
}

// NewServer creates a server for conn.
func NewServer(cfg *config.ServerConfig, conn *connector.Connector, opts ...Option) *Server {
	s := &Server{
		config:   cfg,
		logger:   slog.Default(),
		checker: health.New(2 * time.Second),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.checker.RegisterCheck("connector", func(context.Context) error {
		if s.routes.Load() == nil {
			return errors.New("no connector loaded")
		}
		return nil
	})
	s.checker.RegisterCheck("upstream", func(ctx context.Context) error {
		rt := s.routes.Load()
		if rt == nil {
			return nil
		}
		return health.UpstreamCheck(rt.conn.Client().Stats, MaxUpstreamFailures)(ctx)
	})

	if conn != nil {
		s.routes.Store(s.buildRoutes(conn))
	}
	return s
}

// Reload replaces the served connector. In-flight calls finish on the
// previous connector, whose idle connections are then released.
func (s *Server) Reload(conn *connector.Connector) {
	prev := s.routes.Swap(s.buildRoutes(conn))
	if prev != nil && prev.conn != conn {
		prev.conn.Close()
	}
	s.logger.Info("connector reloaded", "functions", len(conn.Functions()))
}

// Connector returns the served connector.
func (s *Server) Connector() *connector.Connector {
	if rt := s.routes.Load(); rt != nil {
		return rt.conn
	}
	return nil
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting connector server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
		if conn := s.Connector(); conn != nil {
			conn.Close()
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("connector server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the HTTP handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	health.Register(mux, s.checker, s.version)
	if s.metrics != nil && s.metrics.Enabled() {
		mux.Handle("GET "+s.metricsPath(), s.metrics.Handler())
	}
	mux.Handle("/", http.HandlerFunc(s.dispatch))

	var handler http.Handler = mux
	handler = middleware.BodyLimitMiddleware(s.config.MaxBodyBytes)(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(s.logger)(handler)
	handler = middleware.TracingMiddleware(s.tracer)(handler)
	handler = middleware.RecoveryMiddleware(s.logger)(handler)
	return handler
}

func (s *Server) metricsPath() string {
	if s.metrics != nil {
		if p := s.metrics.Path(); p != "" {
			return p
		}
	}
	return config.DefaultMetricsPath
}

// dispatch routes to the current connector's functions.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	rt := s.routes.Load()
	if rt == nil {
		writeError(w, http.StatusServiceUnavailable, "no connector loaded", nil)
		return
	}
	rt.mux.ServeHTTP(w, r)
}
