package core

import (
	"context"

	"github.com/nemanja-m/enhancify/pkg/types"
)

// Enhancer is the per-image enhancement routine. It reads inputPath and
// writes its artifacts into outputDir, which already exists.
type Enhancer interface {
	Enhance(ctx context.Context, inputPath, outputDir string, cfg types.AlgorithmConfig) error
}

// Conn is a worker's link to the coordinator.
type Conn interface {
	// Next blocks until a job arrives. A nil job with a nil error is the
	// terminate directive.
	Next(ctx context.Context) (*types.JobSpec, error)
	Report(ctx context.Context, result types.JobResult) error
	Close() error
}

type JobExecutor interface {
	// Execute runs one job and never returns an error of its own: failures
	// are carried by the result.
	Execute(ctx context.Context, workerID int, job types.JobSpec) types.JobResult
}

type WorkerService interface {
	Run(ctx context.Context) error
	State() State
}

type State int32

const (
	StateIdle State = iota
	StateBusy
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
