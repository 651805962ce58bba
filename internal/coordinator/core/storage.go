package core

import (
	"errors"

	"github.com/google/uuid"

	"github.com/nemanja-m/enhancify/pkg/types"
)

var (
	ErrUnknownJob       = errors.New("unknown job")
	ErrDuplicateJob     = errors.New("job already registered")
	ErrAlreadyAssigned  = errors.New("job already assigned")
	ErrAlreadyCompleted = errors.New("job already completed")
	ErrWorkerMismatch   = errors.New("result reported by a worker the job was not assigned to")
)

// JobLedger keeps per-job bookkeeping for one batch and enforces that every
// job is assigned at most once and completed at most once.
type JobLedger interface {
	Register(jobs ...types.JobSpec) error
	Assign(jobID uuid.UUID, workerID int) error
	// Complete accepts the single result of a job. A job that was never
	// assigned can only be completed with a failed result.
	Complete(result types.JobResult) error
	// Assignments returns job IDs per worker, in assignment order.
	Assignments() map[int][]uuid.UUID
	// Pending is the number of registered jobs without a result.
	Pending() int
}
