package core

import (
	"context"
	"errors"

	"github.com/nemanja-m/enhancify/pkg/types"
)

// WorkerHandle addresses one worker of a pool. The dispatcher is the only
// caller, so implementations never see concurrent Assign/Terminate calls.
type WorkerHandle interface {
	ID() int
	// Assign hands a job to an idle worker. It must not block for the
	// duration of the job.
	Assign(ctx context.Context, job types.JobSpec) error
	// Terminate tells the worker to stop accepting jobs.
	Terminate(ctx context.Context) error
}

// Pool is the set of workers a dispatcher drives. Results of every worker are
// fanned into a single channel, observed in finish order.
type Pool interface {
	Workers() []WorkerHandle
	Results() <-chan types.JobResult
	// Close blocks until every worker acknowledged termination and releases
	// the pool's resources.
	Close(ctx context.Context) error
}

var (
	ErrNoWorkers   = errors.New("no workers available")
	ErrWorkerLost  = errors.New("worker lost before reporting the job")
	ErrEmptyBatch  = errors.New("no images left to process")
	ErrNotFound    = errors.New("does not exist")
	ErrUnsupported = errors.New("unsupported format")
)
