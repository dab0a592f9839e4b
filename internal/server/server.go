// Package server delivers snapshots to the rendering layer over HTTP and
// websockets and answers reachability queries against the current state.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"depflow/internal/metrics"
	"depflow/internal/snapshot"
)

const maxBodyBytes = 64 << 20

// Options configures a Server.
type Options struct {
	// AllowedOrigin is sent as Access-Control-Allow-Origin and checked on
	// websocket upgrades; "*" or empty allows any origin.
	AllowedOrigin string
	Logger        *slog.Logger
}

type Server struct {
	ctrl    *snapshot.Controller
	origin  string
	logger  *slog.Logger
	started time.Time
}

// New creates a server reading from and writing to ctrl.
func New(ctrl *snapshot.Controller, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origin := opts.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	return &Server{
		ctrl:    ctrl,
		origin:  origin,
		logger:  logger,
		started: time.Now(),
	}
}

// Handler returns the routes wrapped in the CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/snapshot", s.handleGetSnapshot)
	mux.HandleFunc("POST /api/snapshot", s.handlePostSnapshot)
	mux.HandleFunc("GET /api/options", s.handleGetOptions)
	mux.HandleFunc("PATCH /api/options", s.handlePatchOptions)
	mux.HandleFunc("GET /api/tree", s.handleTree)
	mux.HandleFunc("GET /api/graph/{direction}", s.handleGraph)
	mux.HandleFunc("GET /api/impact", s.handleImpact)
	mux.HandleFunc("GET /api/paths", s.handlePaths)
	mux.HandleFunc("GET /api/links", s.handleLinks)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("GET /metrics", metrics.Handler())
	return Cors(s.origin)(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.origin == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == s.origin
}
