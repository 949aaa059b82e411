// Package server hosts the prospect tools over MCP stdio or streamable HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-research/internal/metrics"
	"github.com/sells-group/prospect-research/internal/tools"
)

// Name is the MCP implementation name reported to clients.
const Name = "prospect-research"

// Server wraps the MCP server with the prospect tools registered.
type Server struct {
	mcp     *mcp.Server
	metrics *metrics.Metrics
	origins []string
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves m on /metrics in HTTP mode.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithAllowedOrigins sets the CORS origins accepted in HTTP mode.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// New creates a server exposing svc as MCP tools.
func New(version string, svc tools.Service, opts ...Option) *Server {
	s := &Server{
		mcp:     mcp.NewServer(&mcp.Implementation{Name: Name, Version: version}, nil),
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcp.AddReceivingMiddleware(LoggingMiddleware)
	tools.Register(s.mcp, svc)
	return s
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// RunStdio serves a single client on stdin/stdout until it disconnects or
// ctx is cancelled.
func (s *Server) RunStdio(ctx context.Context) error {
	zap.L().Info("server: starting", zap.String("transport", "stdio"))
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return eris.Wrap(err, "server: stdio")
	}
	return nil
}

// Handler returns the HTTP routes: the streamable MCP endpoint on /mcp,
// /health and /metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Mcp-Session-Id", "Mcp-Protocol-Version", "Last-Event-ID"},
		ExposedHeaders: []string{"Mcp-Session-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil))
	return r
}

// ListenAndServe serves Handler on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server: starting", zap.String("transport", "http"), zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	zap.L().Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	return nil
}
