// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go creates:
//   config + execution backend → passed to Server
//   Server.New() creates: sqlite.DB → ExecutionService → handlers
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Avilink123/avilink-sandbox/internal/executor"
	"github.com/Avilink123/avilink-sandbox/internal/handler"
	"github.com/Avilink123/avilink-sandbox/internal/middleware"
	sqliteRepo "github.com/Avilink123/avilink-sandbox/internal/repository/sqlite"
	"github.com/Avilink123/avilink-sandbox/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port          int
	DBPath        string
	BackendName   string // recorded in execution metadata ("process" or "docker")
	MaxConcurrent int    // admission gate size for concurrent executions
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection and the execution service's
// background log writers. Both must be drained/closed on shutdown: the
// service first (so the last records still reach the database), then
// the database (flushes WAL, releases the file lock).
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	svc    *service.ExecutionService
}

// New creates a new Server with the given config and execution backend.
//
// The backend may be nil: the server still starts and serves history,
// but execution requests are answered with 503. This keeps the read
// path alive when, say, the Docker daemon is down.
func New(cfg Config, backend executor.Executor, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	s.setupRoutes(backend)

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// POST /api/execute          → run a Python snippet, return its result
// GET  /api/executions       → list execution records (JSON)
// GET  /api/executions/{id}  → get a single execution record (JSON)
// GET  /healthz              → liveness probe
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Logger — logs each request with timing info
// 4. Recoverer — catches panics and returns 500 instead of crashing
func (s *Server) setupRoutes(backend executor.Executor) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// DEPENDENCY CHAIN:
	//   s.db (sqlite.DB) → implements the repository interfaces
	//   ExecutionService receives the backend + repositories
	//   Handlers receive the service
	//
	// Notice: the handlers never touch the database or the subprocess
	// directly. The service never touches HTTP. Clean separation!
	s.svc = service.NewExecutionService(backend, s.config.BackendName, s.db, s.db, s.logger, s.config.MaxConcurrent)
	executeHandler := handler.NewExecuteHandler(s.svc, s.logger)
	historyHandler := handler.NewHistoryHandler(s.svc, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/execute", executeHandler.HandleExecute)
		r.Get("/executions", historyHandler.HandleList)
		r.Get("/executions/{id}", historyHandler.HandleGet)
	})
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Drain the async execution-log writers
// 4. Close the database connection
//
// Step 3 before step 4: log writes race shutdown, and we would rather
// wait a few seconds than lose the last records.
func (s *Server) Start() error {
	defer s.db.Close()
	defer s.svc.Wait()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
