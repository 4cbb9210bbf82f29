package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 9090, cfg.GRPCPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 60*time.Second, cfg.Coordination.LivenessTimeout)
	assert.Equal(t, "docker", cfg.Supervisor.ContainerRuntime)
	assert.Equal(t, ":8080", cfg.GetHTTPAddr())
	assert.Equal(t, ":9090", cfg.GetGRPCAddr())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("COORD_HTTP_PORT", "9999")
	t.Setenv("COORD_LIVENESS_TIMEOUT", "90s")
	t.Setenv("COORD_CONTAINER_RUNTIME", "podman")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.HTTPPort)
	assert.Equal(t, 90*time.Second, cfg.Coordination.LivenessTimeout)
	assert.Equal(t, "podman", cfg.Supervisor.ContainerRuntime)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"http port", func(c *Config) { c.HTTPPort = 0 }},
		{"grpc port", func(c *Config) { c.GRPCPort = 70000 }},
		{"log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"liveness timeout", func(c *Config) { c.Coordination.LivenessTimeout = 0 }},
		{"container runtime", func(c *Config) { c.Supervisor.ContainerRuntime = "" }},
		{"redis addr", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
