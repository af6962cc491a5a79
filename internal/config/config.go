package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	SourcesDir string        `mapstructure:"sources_dir"`
	OutputsDir string        `mapstructure:"outputs_dir"`
	PromptsDir string        `mapstructure:"prompts_dir"`
	Log        LogConfig     `mapstructure:"log"`
	Storage    StorageConfig `mapstructure:"storage"`
	Gateway    GatewayConfig `mapstructure:"gateway"`
	Server     ServerConfig  `mapstructure:"server"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig selects the output store backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // fs or sqlite
	Path    string `mapstructure:"path"`    // sqlite database file
}

// GatewayConfig configures the external reasoning CLI.
type GatewayConfig struct {
	Command string        `mapstructure:"command"`
	Mode    string        `mapstructure:"mode"` // oneshot, session, interactive
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.OutputsDir == "" {
		return fmt.Errorf("outputs_dir cannot be empty")
	}
	if c.PromptsDir == "" {
		return fmt.Errorf("prompts_dir cannot be empty")
	}
	switch c.Storage.Backend {
	case "fs", "sqlite":
	default:
		return fmt.Errorf("unknown storage backend %q (want fs or sqlite)", c.Storage.Backend)
	}
	switch c.Gateway.Mode {
	case "oneshot", "session", "interactive":
	default:
		return fmt.Errorf("unknown gateway mode %q (want oneshot, session or interactive)", c.Gateway.Mode)
	}
	if c.Gateway.Command == "" {
		return fmt.Errorf("gateway command cannot be empty")
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("gateway timeout must be positive")
	}
	return nil
}
