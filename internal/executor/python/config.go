package python

import "time"

// Config holds the configuration for subprocess execution.
type Config struct {
	// InterpreterPath is the Python interpreter binary to spawn.
	InterpreterPath string
	// Timeout is applied when a request carries no timeout of its own.
	Timeout time.Duration
	// TempDir is where per-execution script files are written.
	// Empty means the OS default temp directory.
	TempDir string
}

// DefaultConfig provides sensible defaults for the subprocess backend.
func DefaultConfig() Config {
	return Config{
		InterpreterPath: "python3",
		// 30 second default timeout, matching the public API default
		Timeout: 30 * time.Second,
		TempDir: "",
	}
}
