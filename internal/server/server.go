// Package server exposes the trading engine over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"papertrader/internal/config"
	"papertrader/internal/engine"
	"papertrader/internal/market"
	"papertrader/internal/signal"
)

// Server is the HTTP front end for the paper trading engine.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	log        zerolog.Logger

	engine    *engine.Engine
	feed      *market.Feed
	predictor *signal.Predictor

	shutdownTimeout time.Duration
}

// New creates the HTTP server and mounts all routes.
func New(cfg config.ServerConfig, eng *engine.Engine, feed *market.Feed, predictor *signal.Predictor, log zerolog.Logger) *Server {
	s := &Server{
		log:             log.With().Str("component", "server").Logger(),
		engine:          eng,
		feed:            feed,
		predictor:       predictor,
		shutdownTimeout: cfg.ShutdownTimeout,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api/trading", func(r chi.Router) {
		r.Post("/execute", s.handleExecute)
		r.Get("/execute", s.handlePortfolio)
		r.Post("/close", s.handleClose)
		r.Get("/status", s.handleStatus)
		r.Get("/market", s.handleMarket)
		r.Post("/predict", s.handlePredict)
	})

	s.router = r
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Router returns the mounted route tree, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins serving. It blocks until the listener fails or Shutdown
// is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
