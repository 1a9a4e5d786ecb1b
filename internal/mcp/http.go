package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"mcp-local-repo-analyzer/internal/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/mark3labs/mcp-go/server"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	rateLimitWindow   = time.Minute
)

// httpTransport is the MCP side of the HTTP server.
type httpTransport interface {
	Shutdown(ctx context.Context) error
}

// Router builds the HTTP handler for transport: the MCP endpoints behind a
// per-IP rate limit, plus /health, /healthz and /metrics. The returned
// function shuts the MCP transport down.
func (s *Server) Router(transport string) (http.Handler, func(context.Context) error, error) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)

	r.Method(http.MethodGet, "/health", s.health)
	r.Method(http.MethodGet, "/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	var mcpTransport httpTransport
	limited := r.With(rateLimit(s.config.Server.RateLimit))

	switch transport {
	case config.TransportStreamableHTTP:
		streamable := server.NewStreamableHTTPServer(s.mcpServer, server.WithEndpointPath("/mcp"))
		limited.Handle("/mcp", streamable)
		mcpTransport = streamable
	case config.TransportSSE:
		sse := server.NewSSEServer(s.mcpServer)
		limited.Handle("/sse", sse.SSEHandler())
		limited.Handle("/message", sse.MessageHandler())
		mcpTransport = sse
	default:
		return nil, nil, fmt.Errorf("transport %q is not served over HTTP", transport)
	}

	return r, mcpTransport.Shutdown, nil
}

// rateLimit rejects clients exceeding perMinute requests with a JSON 429.
// A non-positive limit disables it.
func rateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		perMinute,
		rateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(rateLimitWindow.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded","detail":"Too many requests. Please try again later."}`))
		}),
	)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"requestID", middleware.GetReqID(r.Context()),
			"duration", time.Since(start))
	})
}

// ListenAndServe serves transport on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, transport, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, transport, ln)
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully. ln is closed on return.
func (s *Server) Serve(ctx context.Context, transport string, ln net.Listener) error {
	handler, shutdownMCP, err := s.Router(transport)
	if err != nil {
		_ = ln.Close()
		return err
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("Starting MCP server", "transport", transport, "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := shutdownMCP(shutdownCtx); err != nil {
		s.logger.Warn("MCP transport shutdown failed", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}

	s.logger.Info("MCP server stopped", "transport", transport)
	return nil
}
