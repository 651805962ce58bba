package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// WorkerConfig contains all configuration for a worker process started by the
// process launcher.
type WorkerConfig struct {
	ID          int                   `mapstructure:"id"`
	Coordinator CoordinatorConnConfig `mapstructure:"coordinator"`
	Logging     LoggingConfig         `mapstructure:"logging"`
}

// CoordinatorConnConfig contains coordinator connection configuration.
type CoordinatorConnConfig struct {
	Addr string           `mapstructure:"addr"`
	GRPC WorkerGRPCConfig `mapstructure:"grpc"`
}

// WorkerGRPCConfig contains worker gRPC client configuration.
type WorkerGRPCConfig struct {
	KeepaliveTime    time.Duration `mapstructure:"keepalive_time"`
	KeepaliveTimeout time.Duration `mapstructure:"keepalive_timeout"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
}

// LoadWorker parses the arguments of the worker subcommand.
// Environment variables with ENHANCIFY_WORKER_ prefix override defaults.
func LoadWorker(args []string) (*WorkerConfig, error) {
	fs := pflag.NewFlagSet("enhancify worker", pflag.ContinueOnError)
	fs.String("coordinator", "", "coordinator gRPC address")
	fs.Int("worker-id", 0, "worker identifier assigned by the coordinator")
	fs.String("log-level", "info", "log level")
	fs.String("log-format", "console", "log format (console or json)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	v := viper.New()

	v.SetDefault("id", 0)
	v.SetDefault("coordinator.addr", "")
	v.SetDefault("coordinator.grpc.keepalive_time", 30*time.Second)
	v.SetDefault("coordinator.grpc.keepalive_timeout", 5*time.Second)
	v.SetDefault("coordinator.grpc.dial_timeout", 10*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetEnvPrefix("ENHANCIFY_WORKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"coordinator": "coordinator.addr",
		"worker-id":   "id",
		"log-level":   "logging.level",
		"log-format":  "logging.format",
	}
	for name, key := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}

	var cfg WorkerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Coordinator.Addr == "" {
		return nil, fmt.Errorf("%w: coordinator address is required", ErrUsage)
	}
	if cfg.ID <= 0 {
		return nil, fmt.Errorf("%w: worker id must be positive, got %d", ErrUsage, cfg.ID)
	}

	return &cfg, nil
}
