// Package config loads allocctx configuration from environment variables.
package config

import (
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/kolkov/allocctx/internal/allocctx/api"
	"github.com/kolkov/allocctx/internal/allocctx/pseudostack"
	"github.com/kolkov/allocctx/internal/logging"
)

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all allocctx configuration.
type Config struct {
	Capture CaptureConfig
	Profile ProfileConfig
	Logging LogConfig
}

// CaptureConfig holds tracker runtime configuration.
type CaptureConfig struct {
	Enabled          bool   `envconfig:"ALLOCCTX_CAPTURE" default:"false"`
	MaxSnapshotDepth int    `envconfig:"ALLOCCTX_MAX_SNAPSHOT_DEPTH" default:"128"`
	SweepInterval    uint64 `envconfig:"ALLOCCTX_SWEEP_INTERVAL" default:"1000"`
}

// ProfileConfig holds heap profile sink configuration.
type ProfileConfig struct {
	SampleRate uint64 `envconfig:"ALLOCCTX_SAMPLE_RATE" default:"1"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"ALLOCCTX_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"ALLOCCTX_LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			Enabled:          false,
			MaxSnapshotDepth: pseudostack.MaxDepth,
			SweepInterval:    api.DefaultSweepInterval,
		},
		Profile: ProfileConfig{
			SampleRate: 1,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Capture.MaxSnapshotDepth < 1 || c.Capture.MaxSnapshotDepth > pseudostack.MaxDepth {
		return fmt.Errorf("%w: max snapshot depth %d outside 1..%d",
			ErrInvalidConfig, c.Capture.MaxSnapshotDepth, pseudostack.MaxDepth)
	}
	if c.Profile.SampleRate == 0 {
		return fmt.Errorf("%w: sample rate must be at least 1", ErrInvalidConfig)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Logging.Level)
	}
	return nil
}

// APIOptions converts the capture configuration into tracker options.
func (c *Config) APIOptions() api.Options {
	return api.Options{
		CaptureEnabled:   c.Capture.Enabled,
		MaxSnapshotDepth: c.Capture.MaxSnapshotDepth,
		SweepInterval:    c.Capture.SweepInterval,
	}
}

// LoggingConfig converts the logging configuration for the logging package.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Development = c.Logging.Development
	return cfg
}
