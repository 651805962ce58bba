package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nemanja-m/enhancify/pkg/types"
)

// RunConfig contains everything a single enhancify invocation needs.
type RunConfig struct {
	Image       string                `mapstructure:"image"`
	Folder      string                `mapstructure:"folder"`
	Output      string                `mapstructure:"output"`
	Algorithm   types.AlgorithmConfig `mapstructure:"algorithm"`
	Distributed bool                  `mapstructure:"distributed"`
	Cores       int                   `mapstructure:"cores" validate:"gt=1"`
	Verbose     bool                  `mapstructure:"verbose"`
	Launch      LaunchConfig          `mapstructure:"launch"`
	GRPC        GRPCConfig            `mapstructure:"grpc"`
	Logging     LoggingConfig         `mapstructure:"logging"`
	Metrics     MetricsConfig         `mapstructure:"metrics"`
	Tracing     TracingConfig         `mapstructure:"tracing"`
}

const DefaultCores = 5

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"image":        "image",
	"folder":       "folder",
	"output":       "output",
	"population":   "algorithm.population",
	"generations":  "algorithm.generations",
	"selection":    "algorithm.selection",
	"cross-rate":   "algorithm.cross_rate",
	"mut-rate":     "algorithm.mut_rate",
	"pressure":     "algorithm.pressure",
	"elitism":      "algorithm.elitism",
	"distributed":  "distributed",
	"cores":        "cores",
	"verbose":      "verbose",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
	"metrics-addr": "metrics.addr",
	"trace":        "tracing.enabled",
}

func setRunDefaults(v *viper.Viper) {
	defaults := types.DefaultAlgorithmConfig()

	v.SetDefault("image", "")
	v.SetDefault("folder", "")
	v.SetDefault("output", "output")
	v.SetDefault("algorithm.population", defaults.PopulationSize)
	v.SetDefault("algorithm.generations", defaults.Generations)
	v.SetDefault("algorithm.selection", string(defaults.Selection))
	v.SetDefault("algorithm.cross_rate", defaults.CrossoverRate)
	v.SetDefault("algorithm.mut_rate", defaults.MutationRate)
	v.SetDefault("algorithm.pressure", defaults.TournamentPressure)
	v.SetDefault("algorithm.elitism", defaults.ElitismCount)
	v.SetDefault("distributed", false)
	v.SetDefault("cores", DefaultCores)
	v.SetDefault("verbose", false)
	v.SetDefault("launch.mechanisms", []string{MechanismProcess, MechanismInProcess})
	v.SetDefault("launch.ready_timeout", 30*time.Second)
	v.SetDefault("launch.shutdown_timeout", 30*time.Second)
	v.SetDefault("grpc.addr", "127.0.0.1:0")
	v.SetDefault("grpc.enable_reflection", false)
	v.SetDefault("grpc.keepalive_min_time", 10*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("tracing.enabled", false)
}

// LoadRun parses the command line and resolves the run configuration.
// Precedence is flags, then ENHANCIFY_ environment variables, then the config
// file (enhancify.yaml in ./config or . unless --config is given), then
// defaults. Out-of-range settings are replaced by their defaults and returned
// as warnings. Configuration errors without a safe default are returned as
// errors and abort the run before any discovery happens.
func LoadRun(args []string) (*RunConfig, []Warning, error) {
	if len(args) == 0 {
		return nil, nil, ErrNoOptions
	}

	fs, parsed := NewRunFlagSet()
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil, nil, ErrHelp
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if parsed.help {
		return nil, nil, ErrHelp
	}
	if fs.NArg() > 0 {
		return nil, nil, fmt.Errorf("%w: unexpected arguments %v", ErrUsage, fs.Args())
	}

	v := viper.New()
	setRunDefaults(v)

	if parsed.configPath != "" {
		v.SetConfigFile(parsed.configPath)
	} else {
		v.SetConfigName("enhancify")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ENHANCIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, nil, fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}

	var cfg RunConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	warnings := append(parsed.warnings, ApplyDefaults(&cfg)...)

	if cfg.Image == "" && cfg.Folder == "" {
		return nil, warnings, ErrNoInput
	}
	if cfg.Image != "" && cfg.Folder != "" {
		return nil, warnings, ErrConflictingInput
	}

	return &cfg, warnings, nil
}
