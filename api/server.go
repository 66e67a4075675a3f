// Package api exposes the query-resolution service over HTTP.
//
// Endpoints:
//
//	POST /api/query      resolve one query through a category engine
//	GET  /api/categories list registered categories
//	GET  /health         liveness probe
//	GET  /ready          readiness probe (checks the database)
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/koopa0/chinchilla/internal/agent"
	"github.com/koopa0/chinchilla/internal/log"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:3400"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads to mitigate slowloris clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading an entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout must cover a full engine invocation, which can take
	// tens of seconds when retrieval exhausts into the web fallback.
	WriteTimeout = 120 * time.Second

	// IdleTimeout applies to keep-alive connections between requests.
	IdleTimeout = 120 * time.Second
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

// Server is the HTTP front for the category engines.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health *HealthHandler
	query  *QueryHandler
}

// NewServer creates a server with all routes registered. requestTimeout
// bounds each engine invocation; zero means no per-request deadline.
func NewServer(registry *agent.Registry, checker HealthChecker, requestTimeout time.Duration, logger log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:    mux,
		logger: logger,
		health: NewHealthHandler(checker, logger),
		query:  NewQueryHandler(registry, requestTimeout, logger),
	}

	s.health.RegisterRoutes(mux)
	s.query.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery, request ID, logging.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		s.recoveryMiddleware,
		requestIDMiddleware,
		s.loggingMiddleware,
	)
}

// Run starts the server and blocks until the context is canceled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
