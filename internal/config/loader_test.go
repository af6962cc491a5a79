package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "outputs", cfg.OutputsDir)
	assert.Equal(t, "prompts", cfg.PromptsDir)
	assert.Equal(t, "fs", cfg.Storage.Backend)
	assert.Equal(t, "claude", cfg.Gateway.Command)
	assert.Equal(t, "session", cfg.Gateway.Mode)
	assert.Equal(t, 5*time.Minute, cfg.Gateway.Timeout)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	require.NoError(t, cfg.Validate())
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
outputs_dir: /data/outputs
storage:
  backend: sqlite
gateway:
  command: claude
  mode: oneshot
  timeout: 30s
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/outputs", cfg.OutputsDir)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "oneshot", cfg.Gateway.Mode)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ANKIDOC_GATEWAY_MODE", "interactive")
	t.Setenv("ANKIDOC_LOG_LEVEL", "debug")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "interactive", cfg.Gateway.Mode)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			OutputsDir: "outputs",
			PromptsDir: "prompts",
			Storage:    StorageConfig{Backend: "fs"},
			Gateway:    GatewayConfig{Command: "claude", Mode: "session", Timeout: time.Minute},
		}
	}

	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty outputs dir", func(c *Config) { c.OutputsDir = "" }},
		{"empty prompts dir", func(c *Config) { c.PromptsDir = "" }},
		{"bad backend", func(c *Config) { c.Storage.Backend = "redis" }},
		{"bad gateway mode", func(c *Config) { c.Gateway.Mode = "batch" }},
		{"empty command", func(c *Config) { c.Gateway.Command = "" }},
		{"zero timeout", func(c *Config) { c.Gateway.Timeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
