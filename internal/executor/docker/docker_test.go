package docker_test

import (
	"context"
	"testing"
	"time"

	"log/slog"
	"os"

	"github.com/stretchr/testify/assert"

	"github.com/Avilink123/avilink-sandbox/internal/executor"
	"github.com/Avilink123/avilink-sandbox/internal/executor/docker"
	"github.com/Avilink123/avilink-sandbox/internal/model"
)

func TestDockerExecutor(t *testing.T) {
	// Skip in CI environments if docker is not available
	if os.Getenv("CI") != "" {
		t.Skip("Skipping docker test in CI environment")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := docker.DefaultConfig()
	// reduce pool size for local test speed
	cfg.PoolSize = 1

	exec, err := docker.New(cfg, logger)
	if err != nil {
		t.Skipf("docker daemon not available: %v", err)
	}
	defer exec.Close()

	// Wait a moment for the pool manager to start and warm up containers
	time.Sleep(2 * time.Second)

	t.Run("successful execution", func(t *testing.T) {
		req := executor.ExecutionRequest{
			Code:          `print("Hello from test sandbox!")`,
			CaptureOutput: true,
		}

		res, err := exec.Execute(context.Background(), req)
		assert.NoError(t, err)
		assert.Equal(t, model.StatusSuccess, res.Status)
		assert.Equal(t, "Hello from test sandbox!", res.Output)
		assert.Empty(t, res.Error)
		assert.Greater(t, res.Duration, time.Duration(0))
	})

	t.Run("runtime error", func(t *testing.T) {
		req := executor.ExecutionRequest{
			Code:          "print(1/0)",
			CaptureOutput: true,
		}

		res, err := exec.Execute(context.Background(), req)
		assert.NoError(t, err)
		assert.Equal(t, model.StatusError, res.Status)
		assert.Contains(t, res.Error, "ZeroDivisionError")
		assert.Empty(t, res.Output)
	})

	t.Run("timeout", func(t *testing.T) {
		req := executor.ExecutionRequest{
			Code:          "while True:\n    pass",
			Timeout:       2 * time.Second,
			CaptureOutput: true,
		}

		res, err := exec.Execute(context.Background(), req)
		assert.NoError(t, err)
		assert.Equal(t, model.StatusTimeout, res.Status)
		assert.Equal(t, 2*time.Second, res.Duration)
		assert.Empty(t, res.Output)
	})
}
