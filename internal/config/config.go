// Package config handles subdivtool configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/Faultbox/figure-subdiv/pkg/subdiv"
)

// ErrInvalid is returned by Validate for out-of-range settings.
var ErrInvalid = errors.New("invalid config")

// Config holds all settings.
type Config struct {
	Refine  RefineConfig  `yaml:"refine"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// RefineConfig holds subdivision settings.
type RefineConfig struct {
	Level           int    `yaml:"level"`
	DerivativesOnly bool   `yaml:"derivatives_only"`
	Boundary        string `yaml:"boundary"` // "edge-and-corner" or "edge-only"
	Workers         int    `yaml:"workers"`  // parts refined in parallel, 0 = GOMAXPROCS
}

// OutputConfig holds output file settings.
type OutputConfig struct {
	Path         string `yaml:"path"`
	WriteNormals bool   `yaml:"write_normals"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Refine: RefineConfig{
			Level:    2,
			Boundary: subdiv.EdgeAndCorner.String(),
			Workers:  0,
		},
		Output: OutputConfig{
			Path:         "refined.obj",
			WriteNormals: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks that settings are in range.
func (c *Config) Validate() error {
	if c.Refine.Level < 0 || c.Refine.Level > subdiv.MaxLevel {
		return fmt.Errorf("%w: refine.level %d outside [0, %d]", ErrInvalid, c.Refine.Level, subdiv.MaxLevel)
	}
	if c.Refine.DerivativesOnly && c.Refine.Level != 0 {
		return fmt.Errorf("%w: refine.derivatives_only requires level 0", ErrInvalid)
	}
	if _, err := subdiv.ParseBoundary(c.Refine.Boundary); err != nil {
		return fmt.Errorf("%w: refine.boundary: %v", ErrInvalid, err)
	}
	if c.Refine.Workers < 0 {
		return fmt.Errorf("%w: refine.workers %d is negative", ErrInvalid, c.Refine.Workers)
	}
	return nil
}

// WorkerLimit returns the effective number of parallel workers.
func (c *Config) WorkerLimit() int {
	if c.Refine.Workers > 0 {
		return c.Refine.Workers
	}
	return runtime.GOMAXPROCS(0)
}
