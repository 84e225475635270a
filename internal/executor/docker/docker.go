// Package docker is the hardened execution backend: the wrapped script runs
// inside a pre-warmed container with no network, a read-only root filesystem,
// memory/CPU limits and an unprivileged user. The source-level safety filter
// is only a heuristic; this container boundary is the real isolation.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/Avilink123/avilink-sandbox/internal/executor"
	"github.com/Avilink123/avilink-sandbox/internal/frame"
	"github.com/Avilink123/avilink-sandbox/internal/model"
)

// Executor implements the executor.Executor interface using Docker.
type Executor struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pool   *Pool
}

var _ executor.Executor = (*Executor)(nil)

// New creates a new Docker Executor and initializes the connection.
func New(cfg Config, logger *slog.Logger) (*Executor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	// Make sure the image is pulled
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger.Info("ensuring docker image is available", slog.String("image", cfg.Image))
	reader, err := cli.ImagePull(ctx, cfg.Image, image.PullOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()
	// Read everything to block until the pull is complete
	io.Copy(io.Discard, reader)
	logger.Info("docker image is ready")

	exec := &Executor{
		cli:    cli,
		config: cfg,
		logger: logger,
	}

	exec.pool = NewPool(cli, cfg, logger)
	exec.pool.Start()

	return exec, nil
}

// Close shuts down the executor pool and docker client.
func (e *Executor) Close() error {
	e.pool.Stop()
	return e.cli.Close()
}

// Execute runs the provided Python code in a sandboxed Docker container.
//
// Same contract as the subprocess backend: timeouts, runtime errors and
// container failures travel in the result's Status/Error fields, never as a
// returned error. The only error return is caller cancellation.
func (e *Executor) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.config.Timeout
	}

	result := &executor.ExecutionResult{Code: req.Code}
	start := time.Now()

	// Get a pre-warmed container ID from the pool
	containerID, err := e.pool.GetContainer(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result.Status = model.StatusError
		result.Error = fmt.Sprintf("failed to acquire sandbox container: %v", err)
		return result, nil
	}

	// Always ensure we clean up the container that we acquired — it ran user
	// code, so it is never returned to the pool.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := e.cli.ContainerRemove(cleanupCtx, containerID, container.RemoveOptions{
			Force: true,
		})
		if err != nil {
			e.logger.Error("failed to remove container", slog.String("id", containerID), slog.String("error", err.Error()))
		}
	}()

	// We apply a timeout context purely for the exec wait
	executeCtx, executeCancel := context.WithTimeout(ctx, timeout)
	defer executeCancel()

	// The container runs `sleep infinity`, so we `docker exec` the wrapped
	// script through `python -c` — no file needs to be copied in.
	execConfig := container.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          []string{"python", "-c", frame.Wrap(req.Code)},
	}

	execResp, err := e.cli.ContainerExecCreate(executeCtx, containerID, execConfig)
	if err != nil {
		result.Status = model.StatusError
		result.Error = fmt.Sprintf("failed to start sandboxed interpreter: %v", err)
		return result, nil
	}

	attachResp, err := e.cli.ContainerExecAttach(executeCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		result.Status = model.StatusError
		result.Error = fmt.Sprintf("failed to attach to sandboxed interpreter: %v", err)
		return result, nil
	}
	defer attachResp.Close()

	var stdout, stderr bytes.Buffer

	// Channels to manage sync and timeout
	done := make(chan struct{})
	go func() {
		// Use stdcopy to demultiplex stdout from stderr
		_, _ = stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader)
		close(done)
	}()

	select {
	case <-done:
		// Completed before the deadline
	case <-executeCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Deadline reached. The deferred force-remove kills the container,
		// and with it the interpreter — the hard-kill path.
		result.Status = model.StatusTimeout
		result.Error = fmt.Sprintf("execution timed out after %s", timeout)
		result.Duration = timeout
		return result, nil
	}

	exitCode := 0
	inspectResp, err := e.cli.ContainerExecInspect(ctx, execResp.ID)
	if err == nil {
		exitCode = inspectResp.ExitCode
	}

	result.Duration = time.Since(start)

	errMsg, hasErr := frame.ExtractError(stdout.String())
	if exitCode == 0 && !hasErr {
		result.Status = model.StatusSuccess
		if req.CaptureOutput {
			result.Output = frame.ExtractOutput(stdout.String())
		}
		return result, nil
	}

	result.Status = model.StatusError
	switch {
	case hasErr:
		result.Error = errMsg
	case len(bytes.TrimSpace(stderr.Bytes())) > 0:
		result.Error = string(bytes.TrimSpace(stderr.Bytes()))
	default:
		result.Error = fmt.Sprintf("interpreter exited with status %d", exitCode)
	}
	if req.CaptureOutput && frame.HasOutput(stdout.String()) {
		result.Output = frame.ExtractOutput(stdout.String())
	}
	return result, nil
}
