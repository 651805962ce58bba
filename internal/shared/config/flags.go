package config

// Numeric flags are lenient: a value that does not parse is replaced by the
// flag's default and recorded as a Warning instead of failing the command line.

import (
	"io"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/nemanja-m/enhancify/pkg/types"
)

type parsedFlags struct {
	help       bool
	configPath string
	warnings   []Warning
}

// NewRunFlagSet defines the enhancify command line.
func NewRunFlagSet() (*pflag.FlagSet, *parsedFlags) {
	fs := pflag.NewFlagSet("enhancify", pflag.ContinueOnError)
	fs.SortFlags = false
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	parsed := &parsedFlags{}
	defaults := types.DefaultAlgorithmConfig()

	fs.BoolVarP(&parsed.help, "help", "h", false, "show this help")
	fs.StringP("image", "i", "", "image to enhance")
	fs.StringP("folder", "f", "", "folder containing the images to enhance")
	fs.StringP("output", "o", "output", "output folder")

	fs.VarP(newLenientInt("population", defaults.PopulationSize, parsed), "population", "p", "number of chromosomes")
	fs.VarP(newLenientInt("generations", defaults.Generations, parsed), "generations", "g", "number of generations")
	fs.StringP("selection", "s", string(defaults.Selection), "selection strategy (tournament, wheel, ranking)")
	fs.VarP(newLenientFloat("cross_rate", defaults.CrossoverRate, parsed), "cross-rate", "c", "crossover rate")
	fs.VarP(newLenientFloat("mut_rate", defaults.MutationRate, parsed), "mut-rate", "m", "mutation rate")
	fs.VarP(newLenientInt("pressure", defaults.TournamentPressure, parsed), "pressure", "k", "tournament size")
	fs.VarP(newLenientInt("elitism", defaults.ElitismCount, parsed), "elitism", "e", "number of elite chromosomes")
	fs.BoolP("distributed", "d", false, "distribute the images over a pool of workers")
	fs.VarP(newLenientInt("number of cores", DefaultCores, parsed), "cores", "t", "number of workers")
	fs.BoolP("verbose", "v", false, "print GA settings and per-image timings")

	fs.StringVar(&parsed.configPath, "config", "", "path to config file")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-format", "console", "log format (console or json)")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address during the run")
	fs.Bool("trace", false, "export OpenTelemetry spans to stderr")

	return fs, parsed
}

// RunUsage returns the help text of the enhancify command line.
func RunUsage() string {
	fs, _ := NewRunFlagSet()
	return "Usage: enhancify (-i IMAGE | -f FOLDER) [options]\n\n" + fs.FlagUsages()
}

type lenientInt struct {
	setting string
	value   int
	def     int
	parsed  *parsedFlags
}

func newLenientInt(setting string, def int, parsed *parsedFlags) *lenientInt {
	return &lenientInt{setting: setting, value: def, def: def, parsed: parsed}
}

func (v *lenientInt) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		v.parsed.warnings = append(v.parsed.warnings, Warning{
			Setting: v.setting,
			Value:   strconv.Quote(s),
			Default: strconv.Itoa(v.def),
		})
		v.value = v.def
		return nil
	}
	v.value = n
	return nil
}

func (v *lenientInt) String() string {
	if v == nil {
		return "0"
	}
	return strconv.Itoa(v.value)
}

func (v *lenientInt) Type() string {
	return "int"
}

type lenientFloat struct {
	setting string
	value   float64
	def     float64
	parsed  *parsedFlags
}

func newLenientFloat(setting string, def float64, parsed *parsedFlags) *lenientFloat {
	return &lenientFloat{setting: setting, value: def, def: def, parsed: parsed}
}

func (v *lenientFloat) Set(s string) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		v.parsed.warnings = append(v.parsed.warnings, Warning{
			Setting: v.setting,
			Value:   strconv.Quote(s),
			Default: formatFloat(v.def),
		})
		v.value = v.def
		return nil
	}
	v.value = f
	return nil
}

func (v *lenientFloat) String() string {
	if v == nil {
		return "0"
	}
	return formatFloat(v.value)
}

func (v *lenientFloat) Type() string {
	return "float64"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
