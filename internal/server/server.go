// Package server exposes the simulation engine over a REST API.
//
// All state lives in the session manager; the server is a thin routing and
// serialization layer on top of it. Swagger UI for the API is served at
// /swagger/index.html.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/averdin/parley/internal/analysis"
	"github.com/averdin/parley/internal/batch"
	"github.com/averdin/parley/internal/prompt"
	"github.com/averdin/parley/internal/session"
)

// Server is the REST API server.
type Server struct {
	port      int
	sessions  *session.Manager
	analysis  *analysis.Service
	batch     *batch.Generator
	templates *prompt.Store
	server    *http.Server

	// runCtx bounds background simulation runs. It is the serve context, not
	// a request context, so runs survive the request that started them.
	runCtx context.Context
}

// New creates an API server over the given components.
func New(port int, sessions *session.Manager, analysisSvc *analysis.Service, generator *batch.Generator, templates *prompt.Store) *Server {
	return &Server{
		port:      port,
		sessions:  sessions,
		analysis:  analysisSvc,
		batch:     generator,
		templates: templates,
		runCtx:    context.Background(),
	}
}

// Handler builds the chi router with all API routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/analysis", s.handleAnalyzeProject)
		r.Post("/questions", s.handleGenerateQuestions)
		r.Post("/batch", s.handleBatch)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/run", s.handleRunSession)
				r.Post("/cancel", s.handleCancelSession)
				r.Post("/messages", s.handleAppendMessage)
				r.Post("/turns", s.handleNextTurn)
				r.Post("/insights", s.handleSummarize)
				r.Post("/save", s.handleSave)
			})
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", s.handleListTemplates)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleGetTemplate)
				r.Put("/", s.handleSetTemplate)
				r.Delete("/", s.handleResetTemplate)
			})
		})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return r
}

// ListenAndServe starts the API server and blocks until the context is
// cancelled. Background simulation runs started by requests are bounded by
// the same context.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.runCtx = ctx
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("api server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		slog.Info("api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}
