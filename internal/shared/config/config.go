package config

import (
	"errors"
	"fmt"
	"time"
)

// LoggingConfig contains logging-related configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GRPCConfig contains the coordinator's gRPC listener configuration used by
// the process-based worker pool.
type GRPCConfig struct {
	Addr             string        `mapstructure:"addr"`
	EnableReflection bool          `mapstructure:"enable_reflection"`
	KeepaliveMinTime time.Duration `mapstructure:"keepalive_min_time"`
}

// LaunchConfig controls how distributed workers are started.
type LaunchConfig struct {
	Mechanisms      []string      `mapstructure:"mechanisms"`
	ReadyTimeout    time.Duration `mapstructure:"ready_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// TracingConfig enables span export to stderr.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

const (
	MechanismProcess   = "process"
	MechanismInProcess = "inprocess"
)

var (
	ErrNoOptions        = errors.New("no options provided")
	ErrHelp             = errors.New("help requested")
	ErrNoInput          = errors.New("provide either an image or a folder containing at least an image")
	ErrConflictingInput = errors.New("provide either an image or a folder, not both")
	ErrUsage            = errors.New("invalid command line")
)

// Warning records a setting that was rejected and replaced by its default.
type Warning struct {
	Setting string
	Value   string
	Default string
}

func (w Warning) String() string {
	return fmt.Sprintf("the provided %s is %s. It has been set to %s", w.Setting, w.Value, w.Default)
}
