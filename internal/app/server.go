package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/docuvec/docuvec/internal/api/handlers"
	appMiddleware "github.com/docuvec/docuvec/internal/api/middlewares"
	"github.com/docuvec/docuvec/internal/config"
	"github.com/docuvec/docuvec/internal/core"
	"github.com/docuvec/docuvec/internal/core/ingestion"
	"github.com/docuvec/docuvec/internal/core/llm"
)

// processTimeout bounds a synchronous processing request. It exceeds
// the client driver's longest per-attempt deadline (10m) so the server
// never cuts off an attempt the client is still waiting on.
const processTimeout = 15 * time.Minute

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, db core.DbClient, obj core.ObjectClient, ingestor *ingestion.FileIngestor, providers *llm.Registry, logger *slog.Logger) *Server {
	authHandler := handlers.NewAuthHandler(db, cfg)
	fileHandler := handlers.NewFileHandler(db, obj, cfg, logger)
	processHandler := handlers.NewProcessHandler(ingestor, providers, cfg, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Group(func(public chi.Router) {
			public.Use(middleware.Timeout(60 * time.Second))
			public.Post("/signup", authHandler.Signup)
			public.Post("/login", authHandler.Login)
		})

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(cfg.JwtSecret))

			protected.Group(func(fast chi.Router) {
				fast.Use(middleware.Timeout(60 * time.Second))
				fast.Get("/files", fileHandler.List)
				fast.Get("/files/{id}", fileHandler.Get)
			})

			protected.Group(func(slow chi.Router) {
				slow.Use(middleware.Timeout(5 * time.Minute))
				slow.Post("/files/upload", fileHandler.Upload)
			})

			protected.Group(func(process chi.Router) {
				process.Use(middleware.Timeout(processTimeout))
				process.Post("/files/{id}/process", processHandler.Process)
			})
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, logger: logger}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
