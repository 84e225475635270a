// Package main is the entry point for the sandboxed execution server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package should be kept minimal — its job is to:
// 1. Read configuration (from env vars, flags, or config files)
// 2. Create dependencies (logger, database connections, etc.)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
// This separation makes the app testable and its components reusable.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Avilink123/avilink-sandbox/internal/config"
	"github.com/Avilink123/avilink-sandbox/internal/executor"
	"github.com/Avilink123/avilink-sandbox/internal/executor/docker"
	"github.com/Avilink123/avilink-sandbox/internal/executor/python"
	"github.com/Avilink123/avilink-sandbox/internal/server"
)

func main() {
	// === 1. SET UP LOGGING ===
	// slog.New creates a structured logger. slog.NewTextHandler outputs human-readable logs.
	//
	// Log levels (from least to most severe): Debug → Info → Warn → Error
	// In production, you'd use LevelInfo or LevelWarn to reduce noise.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// === 2. READ CONFIGURATION ===
	// sandbox.yaml plus SANDBOX_* env overrides, see internal/config.
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Ensure the database directory exists.
	// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
	if dbDir := filepath.Dir(cfg.Storage.DBPath); dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 3. INITIALIZE THE EXECUTION BACKEND ===
	// "process" spawns the local interpreter and is the default.
	// "docker" runs code in pooled, hardened containers and is optional:
	// when the daemon is unreachable the server still starts, but
	// /api/execute answers 503.
	var backend executor.Executor
	switch cfg.Executor.Backend {
	case config.BackendDocker:
		dockerCfg := docker.Config{
			Image:       cfg.Docker.Image,
			MemoryLimit: cfg.Docker.MemoryMB * 1024 * 1024,
			CPULimit:    cfg.Docker.CPUs,
			Timeout:     cfg.Executor.DefaultTimeout(),
			PoolSize:    cfg.Docker.PoolSize,
		}
		dockerExec, err := docker.New(dockerCfg, logger)
		if err != nil {
			logger.Warn("Docker backend unavailable, /api/execute will return 503",
				slog.String("error", err.Error()),
			)
		} else {
			defer dockerExec.Close()
			backend = dockerExec
		}

	case config.BackendProcess:
		backend = python.New(python.Config{
			InterpreterPath: cfg.Executor.PythonPath,
			Timeout:         cfg.Executor.DefaultTimeout(),
		}, logger)
	}

	// === 4. CREATE AND START THE SERVER ===
	srvCfg := server.Config{
		Port:          cfg.Server.Port,
		DBPath:        cfg.Storage.DBPath,
		BackendName:   cfg.Executor.Backend,
		MaxConcurrent: cfg.Executor.MaxConcurrent,
	}

	srv, err := server.New(srvCfg, backend, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
