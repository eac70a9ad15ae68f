package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lcalzada-xor/wlanctl/internal/adapters/web/middleware"
	"github.com/lcalzada-xor/wlanctl/internal/core/services/registry"
)

const controlRequestsPerMinute = 30

// Server exposes radio status and control over HTTP.
type Server struct {
	Addr           string
	Registry       *registry.Registry
	// Clock returns the control plane time in milliseconds.
	Clock          func() uint64
	ControlLimiter *middleware.RateLimiter

	srv *http.Server
}

// NewServer creates a new web server.
func NewServer(addr string, reg *registry.Registry, clock func() uint64) *Server {
	if clock == nil {
		clock = func() uint64 { return uint64(time.Now().UnixMilli()) }
	}
	return &Server{
		Addr:           addr,
		Registry:       reg,
		Clock:          clock,
		ControlLimiter: middleware.NewRateLimiter(controlRequestsPerMinute, time.Minute),
	}
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(SetupRoutes(s), "wlanctl-server")
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Web server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Web server shutdown error", "error", err)
		}
	}()

	slog.Info("Web server listening", "addr", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
