// Package executor defines the contract between the execution service and the
// backends that actually run code (subprocess, Docker). Backends are
// interchangeable: callers depend only on the Executor interface.
package executor

import (
	"context"
	"time"

	"github.com/Avilink123/avilink-sandbox/internal/model"
)

// DefaultTimeout is applied when a request does not specify one.
const DefaultTimeout = 30 * time.Second

// ExecutionRequest represents a single request to execute Python code.
// It is transient — constructed per call, never persisted.
type ExecutionRequest struct {
	Code          string        `json:"code"`
	Timeout       time.Duration `json:"timeout"`
	CaptureOutput bool          `json:"captureOutput"`
}

// ExecutionResult is the terminal outcome of one execution attempt.
// It is immutable once produced: returned to the caller and handed to the
// history logger as-is.
//
// Status holds exactly one of model.StatusSuccess, model.StatusError or
// model.StatusTimeout:
//   - timeout  iff the process was killed for exceeding its deadline
//   - success  iff the process exited zero AND no error segment was parsed
//   - error    in every other case (runtime error, spawn failure, rejection)
type ExecutionResult struct {
	Code     string        `json:"code"`
	Output   string        `json:"output"`
	Error    string        `json:"error"` // empty = no error
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration"`
}

// Failed reports whether the result carries a non-success status.
func (r *ExecutionResult) Failed() bool {
	return r.Status != model.StatusSuccess
}

// Executor represents the core interface for running code in an isolated environment.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}
