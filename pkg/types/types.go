package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Selection names the parent selection operator used by the GA.
type Selection string

const (
	SelectionTournament Selection = "tournament"
	SelectionWheel      Selection = "wheel"
	SelectionRanking    Selection = "ranking"
)

// AlgorithmConfig holds the GA settings shared by every job of a batch. It is
// copied by value into each JobSpec and never modified once a run starts.
type AlgorithmConfig struct {
	PopulationSize     int       `mapstructure:"population" yaml:"population" validate:"gt=0"`
	Generations        int       `mapstructure:"generations" yaml:"generations" validate:"gt=0"`
	Selection          Selection `mapstructure:"selection" yaml:"selection" validate:"oneof=tournament wheel ranking"`
	CrossoverRate      float64   `mapstructure:"cross_rate" yaml:"cross_rate" validate:"gte=0,lte=1"`
	MutationRate       float64   `mapstructure:"mut_rate" yaml:"mut_rate" validate:"gte=0,lte=1"`
	TournamentPressure int       `mapstructure:"pressure" yaml:"pressure" validate:"gt=0,ltefield=PopulationSize"`
	ElitismCount       int       `mapstructure:"elitism" yaml:"elitism" validate:"gte=0,ltefield=PopulationSize"`
}

const (
	DefaultPopulationSize     = 100
	DefaultGenerations        = 100
	DefaultSelection          = SelectionTournament
	DefaultCrossoverRate      = 0.9
	DefaultMutationRate       = 0.01
	DefaultTournamentPressure = 20
	DefaultElitismCount       = 1
)

func DefaultAlgorithmConfig() AlgorithmConfig {
	return AlgorithmConfig{
		PopulationSize:     DefaultPopulationSize,
		Generations:        DefaultGenerations,
		Selection:          DefaultSelection,
		CrossoverRate:      DefaultCrossoverRate,
		MutationRate:       DefaultMutationRate,
		TournamentPressure: DefaultTournamentPressure,
		ElitismCount:       DefaultElitismCount,
	}
}

// JobSpec describes one enhancement job. It is created once per accepted image
// and consumed exactly once by a worker.
type JobSpec struct {
	ID        uuid.UUID
	Index     int
	InputPath string
	OutputDir string
	Config    AlgorithmConfig
}

// JobResult is reported by a worker when a job finishes, successfully or not.
// A non-nil Err marks the job as failed; the batch keeps going regardless.
type JobResult struct {
	JobID     uuid.UUID
	InputPath string
	WorkerID  int
	Elapsed   time.Duration
	Err       error
}

func (r JobResult) Failed() bool {
	return r.Err != nil
}

// JobError is the error marker carried by a failed JobResult.
type JobError struct {
	InputPath string
	Err       error
}

func NewJobError(inputPath string, err error) *JobError {
	return &JobError{InputPath: inputPath, Err: err}
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s failed: %v", e.InputPath, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// IsJobError reports whether err carries a job failure marker.
func IsJobError(err error) bool {
	var jobErr *JobError
	return errors.As(err, &jobErr)
}
