package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the coordination daemon
type Config struct {
	// Server configuration
	HTTPPort int    `env:"COORD_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"COORD_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis configuration (event mirror + task archive)
	Redis RedisConfig

	// Coordination store tuning
	Coordination CoordinationConfig

	// Process supervisor tuning
	Supervisor SupervisorConfig
}

// RedisConfig holds Redis connection configuration. Redis is optional:
// when disabled the daemon runs with the in-memory event bus and no task
// archive mirror.
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`

	// TTL for the archived-task mirror
	TaskArchiveTTL time.Duration `env:"REDIS_TASK_ARCHIVE_TTL" envDefault:"24h"`
}

// CoordinationConfig holds store tuning knobs.
type CoordinationConfig struct {
	LivenessTimeout       time.Duration `env:"COORD_LIVENESS_TIMEOUT" envDefault:"60s"`
	LivenessSweepInterval time.Duration `env:"COORD_LIVENESS_SWEEP_INTERVAL" envDefault:"15s"`
	ClaimSweepInterval    time.Duration `env:"COORD_CLAIM_SWEEP_INTERVAL" envDefault:"30s"`
}

// SupervisorConfig holds process supervision tuning knobs.
type SupervisorConfig struct {
	ContainerRuntime      string        `env:"COORD_CONTAINER_RUNTIME" envDefault:"docker"`
	DefaultProcessTimeout time.Duration `env:"COORD_PROCESS_TIMEOUT" envDefault:"300s"`
	TerminationGrace      time.Duration `env:"COORD_TERMINATION_GRACE" envDefault:"5s"`
	ShutdownTimeout       time.Duration `env:"COORD_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	// Validate Redis config
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	// Validate coordination config
	if c.Coordination.LivenessTimeout <= 0 {
		return fmt.Errorf("liveness timeout must be positive")
	}
	if c.Coordination.LivenessSweepInterval <= 0 {
		return fmt.Errorf("liveness sweep interval must be positive")
	}
	if c.Coordination.ClaimSweepInterval <= 0 {
		return fmt.Errorf("claim sweep interval must be positive")
	}

	// Validate supervisor config
	if c.Supervisor.ContainerRuntime == "" {
		return fmt.Errorf("container runtime is required")
	}
	if c.Supervisor.DefaultProcessTimeout <= 0 {
		return fmt.Errorf("default process timeout must be positive")
	}
	if c.Supervisor.TerminationGrace <= 0 {
		return fmt.Errorf("termination grace must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
