// Package health exposes liveness and readiness endpoints on a dedicated
// port, kept separate from the API server so orchestrators can probe the
// daemon even when the API is saturated.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Server is a lightweight HTTP server exposing /healthz and /readyz.
type Server struct {
	port    int
	backend string
	ready   atomic.Bool
	server  *http.Server
}

// New creates a health server that reports which model backend is active.
func New(port int, backend string) *Server {
	return &Server{port: port, backend: backend}
}

// SetReady marks the daemon as ready to accept traffic. It is flipped on
// once the model backend is constructed and the API server is listening.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// ListenAndServe starts the health server and blocks until the context is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	probe := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !s.ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_ready"})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "backend": s.backend})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", probe)
	mux.HandleFunc("GET /readyz", probe)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("health server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
