package config

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/nemanja-m/enhancify/pkg/types"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// algorithmChecks lists the GA fields in the order they are checked. Order
// matters: pressure and elitism are bounded by the already-corrected
// population size.
var algorithmChecks = []struct {
	field   string
	setting string
	reset   func(cfg *types.AlgorithmConfig) (old, def string)
}{
	{"PopulationSize", "population", func(c *types.AlgorithmConfig) (string, string) {
		old := strconv.Itoa(c.PopulationSize)
		c.PopulationSize = types.DefaultPopulationSize
		return old, strconv.Itoa(c.PopulationSize)
	}},
	{"Generations", "generations", func(c *types.AlgorithmConfig) (string, string) {
		old := strconv.Itoa(c.Generations)
		c.Generations = types.DefaultGenerations
		return old, strconv.Itoa(c.Generations)
	}},
	{"Selection", "selection", func(c *types.AlgorithmConfig) (string, string) {
		old := string(c.Selection)
		c.Selection = types.DefaultSelection
		return old, string(c.Selection)
	}},
	{"CrossoverRate", "cross_rate", func(c *types.AlgorithmConfig) (string, string) {
		old := formatFloat(c.CrossoverRate)
		c.CrossoverRate = types.DefaultCrossoverRate
		return old, formatFloat(c.CrossoverRate)
	}},
	{"MutationRate", "mut_rate", func(c *types.AlgorithmConfig) (string, string) {
		old := formatFloat(c.MutationRate)
		c.MutationRate = types.DefaultMutationRate
		return old, formatFloat(c.MutationRate)
	}},
	{"TournamentPressure", "pressure", func(c *types.AlgorithmConfig) (string, string) {
		old := strconv.Itoa(c.TournamentPressure)
		c.TournamentPressure = min(types.DefaultTournamentPressure, c.PopulationSize)
		return old, strconv.Itoa(c.TournamentPressure)
	}},
	{"ElitismCount", "elitism", func(c *types.AlgorithmConfig) (string, string) {
		old := strconv.Itoa(c.ElitismCount)
		c.ElitismCount = min(types.DefaultElitismCount, c.PopulationSize)
		return old, strconv.Itoa(c.ElitismCount)
	}},
}

// ApplyDefaults replaces every out-of-range setting with its documented
// default and returns one warning per replacement.
func ApplyDefaults(cfg *RunConfig) []Warning {
	var warnings []Warning

	for _, check := range algorithmChecks {
		if err := validate.StructPartial(&cfg.Algorithm, check.field); err != nil {
			old, def := check.reset(&cfg.Algorithm)
			warnings = append(warnings, Warning{Setting: check.setting, Value: old, Default: def})
		}
	}

	if err := validate.StructPartial(cfg, "Cores"); err != nil {
		warnings = append(warnings, Warning{
			Setting: "number of cores",
			Value:   strconv.Itoa(cfg.Cores),
			Default: strconv.Itoa(DefaultCores),
		})
		cfg.Cores = DefaultCores
	}

	return warnings
}

// ValidateAlgorithm reports whether cfg satisfies every range constraint.
func ValidateAlgorithm(cfg types.AlgorithmConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid algorithm config: %w", err)
	}
	return nil
}
