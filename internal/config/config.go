package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend names accepted for executor.backend.
const (
	BackendProcess = "process"
	BackendDocker  = "docker"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Docker   DockerConfig   `mapstructure:"docker"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// StorageConfig holds the execution log database settings.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// ExecutorConfig selects and tunes the execution backend.
type ExecutorConfig struct {
	Backend           string `mapstructure:"backend"`
	PythonPath        string `mapstructure:"python_path"`
	DefaultTimeoutSec int    `mapstructure:"default_timeout_sec"`
	MaxConcurrent     int    `mapstructure:"max_concurrent"`
}

// DockerConfig tunes the Docker backend. Ignored when executor.backend
// is "process".
type DockerConfig struct {
	Image    string  `mapstructure:"image"`
	MemoryMB int64   `mapstructure:"memory_mb"`
	CPUs     float64 `mapstructure:"cpus"`
	PoolSize int     `mapstructure:"pool_size"`
}

// DefaultTimeout returns the configured default execution deadline.
func (c ExecutorConfig) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutSec) * time.Second
}

// Load reads configuration from sandbox.yaml (working directory or
// ./config), applies defaults, and lets SANDBOX_* environment variables
// override any key (e.g. SANDBOX_SERVER_PORT=9090).
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("sandbox")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("SANDBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.db_path", "sandbox.db")
	v.SetDefault("executor.backend", BackendProcess)
	v.SetDefault("executor.python_path", "python3")
	v.SetDefault("executor.default_timeout_sec", 30)
	v.SetDefault("executor.max_concurrent", 4)
	v.SetDefault("docker.image", "python:3.12-alpine")
	v.SetDefault("docker.memory_mb", 128)
	v.SetDefault("docker.cpus", 0.5)
	v.SetDefault("docker.pool_size", 3)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, the defaults stand.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Executor.Backend != BackendProcess && c.Executor.Backend != BackendDocker {
		return fmt.Errorf("executor.backend must be %q or %q, got %q",
			BackendProcess, BackendDocker, c.Executor.Backend)
	}
	if c.Executor.DefaultTimeoutSec <= 0 {
		return fmt.Errorf("executor.default_timeout_sec must be positive, got %d", c.Executor.DefaultTimeoutSec)
	}
	if c.Executor.MaxConcurrent <= 0 {
		return fmt.Errorf("executor.max_concurrent must be positive, got %d", c.Executor.MaxConcurrent)
	}
	if c.Executor.Backend == BackendDocker {
		if c.Docker.Image == "" {
			return fmt.Errorf("docker.image is required for the docker backend")
		}
		if c.Docker.PoolSize <= 0 {
			return fmt.Errorf("docker.pool_size must be positive, got %d", c.Docker.PoolSize)
		}
	}
	return nil
}
