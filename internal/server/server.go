// Package server exposes search, question answering and ingestion over
// HTTP. Answers stream as server-sent events or over a websocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bookquill/bookquill/internal/config"
	"github.com/bookquill/bookquill/internal/docstore"
	"github.com/bookquill/bookquill/internal/engine"
	"github.com/bookquill/bookquill/internal/ingest"
	"github.com/bookquill/bookquill/internal/scope"
)

// Server is the bookquill HTTP server.
type Server struct {
	cfg        config.ServerConfig
	engine     *engine.Engine
	docs       *docstore.Store
	scopes     *scope.Store
	pipeline   *ingest.Pipeline
	logger     *slog.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a Server with all dependencies.
func New(cfg config.ServerConfig, eng *engine.Engine, docs *docstore.Store, scopes *scope.Store, pipeline *ingest.Pipeline, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		engine:   eng,
		docs:     docs,
		scopes:   scopes,
		pipeline: pipeline,
		logger:   logger,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Reader-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Post("/ask", s.handleAsk)
		r.Get("/ws/ask", s.handleAskWS)

		r.Get("/documents", s.handleListDocuments)
		r.Post("/documents", s.handleCreateDocument)
		r.Post("/documents/{id}/ingest", s.handleIngest)

		r.Post("/subscriptions", s.handleSubscribe)
		r.Delete("/subscriptions", s.handleUnsubscribe)
	})

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Answer streams stay open well past a normal request.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("bookquill server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
