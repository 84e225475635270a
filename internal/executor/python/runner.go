// Package python runs user code by spawning a fresh interpreter process per
// request. Each run moves through exactly one path:
//
//	spawned → completed   (process exited before the deadline, any exit code)
//	spawned → timed out   (deadline fired first; the process is hard-killed)
//	spawn failed          (interpreter missing or process never started)
//
// All outcomes are terminal — the runner never retries. The on-disk wrapped
// script is removed on every path, including after a forced kill.
package python

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/Avilink123/avilink-sandbox/internal/executor"
	"github.com/Avilink123/avilink-sandbox/internal/frame"
	"github.com/Avilink123/avilink-sandbox/internal/model"
)

// Runner implements the executor.Executor interface using a subprocess.
type Runner struct {
	config Config
	logger *slog.Logger
}

var _ executor.Executor = (*Runner)(nil)

// New creates a new subprocess Runner.
func New(cfg Config, logger *slog.Logger) *Runner {
	if cfg.InterpreterPath == "" {
		cfg.InterpreterPath = DefaultConfig().InterpreterPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Runner{config: cfg, logger: logger}
}

// rawRun is what actually came back from the operating system, before any
// sentinel parsing or status mapping.
type rawRun struct {
	stdout   string
	stderr   string
	exitCode int
	timedOut bool
	duration time.Duration
}

// Execute runs the provided Python code in a fresh interpreter process.
//
// Runtime failures, timeouts and spawn failures are reported through the
// result's Status/Error fields, never as a returned error — the only error
// return is cancellation of the caller's own context.
func (r *Runner) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.config.Timeout
	}

	result := &executor.ExecutionResult{Code: req.Code}

	raw, err := r.run(ctx, frame.Wrap(req.Code), timeout)
	if err != nil {
		// The caller went away; nobody is left to consume a result.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Spawned-but-failed: nothing ran, so there is no output to parse.
		r.logger.Error("failed to spawn interpreter",
			slog.String("interpreter", r.config.InterpreterPath),
			slog.String("error", err.Error()),
		)
		result.Status = model.StatusError
		result.Error = fmt.Sprintf("failed to start interpreter: %v", err)
		result.Duration = 0
		return result, nil
	}

	if raw.timedOut {
		// Hard kill already happened. Output is deliberately discarded: a
		// killed wrapper never reached its reporting step, so whatever is in
		// the buffers is partial interpreter noise.
		result.Status = model.StatusTimeout
		result.Error = fmt.Sprintf("execution timed out after %s", timeout)
		result.Duration = timeout
		return result, nil
	}

	result.Duration = raw.duration

	// The wrapper writes both sentinel blocks to stdout; the traceback goes
	// to stderr.
	errMsg, hasErr := frame.ExtractError(raw.stdout)

	if raw.exitCode == 0 && !hasErr {
		result.Status = model.StatusSuccess
		if req.CaptureOutput {
			result.Output = frame.ExtractOutput(raw.stdout)
		}
		return result, nil
	}

	result.Status = model.StatusError
	switch {
	case hasErr:
		result.Error = errMsg
	case len(bytes.TrimSpace([]byte(raw.stderr))) > 0:
		// Process died before the wrapper could report (e.g. killed by a
		// signal, os._exit): fall back to whatever stderr holds.
		result.Error = string(bytes.TrimSpace([]byte(raw.stderr)))
	default:
		result.Error = fmt.Sprintf("interpreter exited with status %d", raw.exitCode)
	}
	if req.CaptureOutput && frame.HasOutput(raw.stdout) {
		result.Output = frame.ExtractOutput(raw.stdout)
	}
	return result, nil
}

// run writes the wrapped script to a unique temp file and executes it under
// the deadline. The returned error is non-nil only when the process never
// ran (temp file or spawn failure) or the parent context was cancelled.
func (r *Runner) run(ctx context.Context, script string, timeout time.Duration) (*rawRun, error) {
	tmp, err := os.CreateTemp(r.config.TempDir, "avilink-exec-*.py")
	if err != nil {
		return nil, fmt.Errorf("creating script file: %w", err)
	}
	// Deferred removal is the guaranteed-release path: it runs whether the
	// process completed, timed out, or never started.
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(script); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing script file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing script file: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// CommandContext sends SIGKILL when the deadline fires — no grace period,
	// since cooperative termination cannot be trusted for arbitrary user code.
	cmd := exec.CommandContext(runCtx, r.config.InterpreterPath, tmp.Name())

	// bytes.Buffer destinations make os/exec drain both pipes concurrently
	// while the process runs, so large output cannot deadlock on a full pipe.
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// If user code leaked a grandchild holding the pipes open, stop waiting
	// for it shortly after the kill instead of hanging Wait forever.
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		return &rawRun{timedOut: true, duration: elapsed}, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	exitCode := 0
	if runErr != nil {
		exitErr, ok := runErr.(*exec.ExitError)
		if !ok {
			// The process never started (missing interpreter, permission
			// denied). This is the spawn-failure path.
			return nil, runErr
		}
		exitCode = exitErr.ExitCode()
	}

	return &rawRun{
		stdout:   stdout.String(),
		stderr:   stderr.String(),
		exitCode: exitCode,
		duration: elapsed,
	}, nil
}
