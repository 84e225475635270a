// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Executor / Repository    → runs code, reads/writes the database
//
// The execution service is the only place the full pipeline is visible:
// validate → safety pre-filter → admission gate → backend execute → async
// history write. Handlers never talk to the executor or repositories
// directly.
package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/Avilink123/avilink-sandbox/internal/apperror"
	"github.com/Avilink123/avilink-sandbox/internal/executor"
	"github.com/Avilink123/avilink-sandbox/internal/model"
	"github.com/Avilink123/avilink-sandbox/internal/repository"
	"github.com/Avilink123/avilink-sandbox/internal/safety"
)

const (
	// MaxCodeBytes caps submitted source size. Large inputs are rejected
	// before any wrapping or spawning happens.
	MaxCodeBytes = 64 * 1024

	// MaxTimeout is the ceiling any single execution may request. Longer
	// requests are clamped, not rejected — the caller still gets a run.
	MaxTimeout = 5 * time.Minute

	DefaultListLimit = 20
	MaxListLimit     = 100

	// logWriteTimeout bounds the asynchronous history write. It uses its own
	// deadline because the request context is typically gone by the time the
	// write runs.
	logWriteTimeout = 5 * time.Second
)

// ExecutionService orchestrates code execution and history.
type ExecutionService struct {
	exec       executor.Executor // nil when no backend is configured
	backend    string            // backend name recorded in history metadata
	executions repository.ExecutionRepository
	users      repository.UserRepository
	logger     *slog.Logger

	// gate is a counting semaphore bounding in-flight executions. Every
	// execution holds one slot for its full duration, so at most cap(gate)
	// external processes exist at once regardless of HTTP concurrency.
	gate chan struct{}

	// wg tracks in-flight asynchronous history writes so shutdown (and
	// tests) can wait for them instead of losing records.
	wg sync.WaitGroup
}

// NewExecutionService wires the execution pipeline.
// exec may be nil: the service then rejects execution calls with an
// unavailable error but still serves history.
func NewExecutionService(
	exec executor.Executor,
	backend string,
	executions repository.ExecutionRepository,
	users repository.UserRepository,
	logger *slog.Logger,
	maxConcurrent int,
) *ExecutionService {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &ExecutionService{
		exec:       exec,
		backend:    backend,
		executions: executions,
		users:      users,
		logger:     logger,
		gate:       make(chan struct{}, maxConcurrent),
	}
}

// Execute runs the submitted code and returns its result.
//
// Error contract (mirrors the HTTP surface):
//   - validation failures and a missing backend return a Go error — nothing
//     was spawned, the caller sent a bad request or the service is degraded
//   - safety rejections, runtime errors, timeouts and spawn failures are all
//     reported inside the returned ExecutionResult; the call itself succeeds
func (s *ExecutionService) Execute(ctx context.Context, userName, code string, timeout time.Duration, captureOutput bool) (*executor.ExecutionResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperror.ValidationFailed("code", "code is required")
	}
	if len(code) > MaxCodeBytes {
		return nil, apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d bytes or less", MaxCodeBytes))
	}
	if timeout < 0 {
		return nil, apperror.ValidationFailed("timeout", "timeout must be positive")
	}
	if timeout == 0 {
		timeout = executor.DefaultTimeout
	}
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}

	// Safety pre-filter runs before any resource is consumed. A rejection is
	// a terminal result (not an HTTP error) and still lands in history.
	if reason, rejected := safety.Check(code); rejected {
		result := &executor.ExecutionResult{
			Code:   code,
			Status: model.StatusError,
			Error:  fmt.Sprintf("code rejected by safety filter: %s", reason),
		}
		s.logger.Info("execution rejected by safety filter",
			slog.String("user", userName),
			slog.String("reason", reason),
		)
		s.logAsync(userName, result)
		return result, nil
	}

	if s.exec == nil {
		return nil, apperror.Unavailable("no execution backend configured")
	}

	// Admission gate: block until a slot frees up or the caller gives up.
	select {
	case s.gate <- struct{}{}:
		defer func() { <-s.gate }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	result, err := s.exec.Execute(ctx, executor.ExecutionRequest{
		Code:          code,
		Timeout:       timeout,
		CaptureOutput: captureOutput,
	})
	if err != nil {
		s.logger.Error("execution backend failed",
			slog.String("backend", s.backend),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("executing code: %w", err)
	}

	s.logger.Info("execution finished",
		slog.String("user", userName),
		slog.String("status", result.Status),
		slog.Duration("duration", result.Duration),
	)

	s.logAsync(userName, result)
	return result, nil
}

// GetExecution retrieves one history record by ID.
func (s *ExecutionService) GetExecution(ctx context.Context, id string) (*model.ExecutionRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "execution ID is required")
	}
	return s.executions.GetByID(ctx, id)
}

// ListExecutions retrieves history with pagination, optionally scoped to one
// user name. Limits are clamped so callers can't request unbounded pages.
func (s *ExecutionService) ListExecutions(ctx context.Context, userName string, limit, offset int) ([]model.ExecutionRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	opts := repository.ListOptions{Limit: limit, Offset: offset}
	if userName != "" {
		user, err := s.users.GetOrCreateByName(ctx, userName)
		if err != nil {
			return nil, fmt.Errorf("resolving user %q: %w", userName, err)
		}
		opts.UserID = user.ID
	}

	records, err := s.executions.List(ctx, opts)
	if err != nil {
		s.logger.Error("failed to list executions", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing executions: %w", err)
	}
	return records, nil
}

// Wait blocks until all pending history writes have finished. Called on
// shutdown so in-flight records are not lost; tests use it to avoid sleeps.
func (s *ExecutionService) Wait() {
	s.wg.Wait()
}

// recordMetadata is the free-form metadata stored with each record.
type recordMetadata struct {
	Backend     string `json:"backend"`
	Fingerprint string `json:"fingerprint"` // blake2b-256 of the source text
}

// logAsync persists the execution record in the background. The result has
// already been handed to the caller, so persistence failures are logged and
// swallowed — they must never surface as execution failures.
func (s *ExecutionService) logAsync(userName string, result *executor.ExecutionResult) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), logWriteTimeout)
		defer cancel()

		user, err := s.users.GetOrCreateByName(ctx, userName)
		if err != nil {
			s.logger.Error("failed to resolve user for execution record",
				slog.String("user", userName),
				slog.String("error", err.Error()),
			)
			return
		}

		fingerprint := blake2b.Sum256([]byte(result.Code))
		meta, _ := json.Marshal(recordMetadata{
			Backend:     s.backend,
			Fingerprint: hex.EncodeToString(fingerprint[:]),
		})

		record := &model.ExecutionRecord{
			UserID:     user.ID,
			Language:   "python",
			Code:       result.Code,
			Output:     result.Output,
			Error:      result.Error,
			Status:     result.Status,
			DurationMs: result.Duration.Milliseconds(),
			Metadata:   string(meta),
		}

		if err := s.executions.Create(ctx, record); err != nil {
			s.logger.Error("failed to persist execution record",
				slog.String("user", userName),
				slog.String("status", result.Status),
				slog.String("error", err.Error()),
			)
		}
	}()
}
