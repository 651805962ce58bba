package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/nemanja-m/enhancify/internal/shared/logging"
	"github.com/nemanja-m/enhancify/internal/worker/core"
)

type workerService struct {
	id       int
	conn     core.Conn
	executor core.JobExecutor
	logger   logging.Logger
	state    atomic.Int32
}

func NewWorkerService(
	id int,
	conn core.Conn,
	executor core.JobExecutor,
	logger logging.Logger,
) core.WorkerService {
	return &workerService{
		id:       id,
		conn:     conn,
		executor: executor,
		logger:   logger.With("worker_id", id),
	}
}

func (w *workerService) State() core.State {
	return core.State(w.state.Load())
}

// Run processes jobs one at a time until the terminate directive arrives or
// the connection fails.
func (w *workerService) Run(ctx context.Context) error {
	defer w.state.Store(int32(core.StateTerminated))

	for {
		job, err := w.conn.Next(ctx)
		if err != nil {
			return fmt.Errorf("worker %d failed to receive job: %w", w.id, err)
		}
		if job == nil {
			w.logger.Debug("Worker terminated")
			return nil
		}

		w.logger.Debug("Received job", "job_id", job.ID.String(), "input", job.InputPath)
		w.state.Store(int32(core.StateBusy))
		result := w.executor.Execute(ctx, w.id, *job)

		if err := w.conn.Report(ctx, result); err != nil {
			return fmt.Errorf("worker %d failed to report job %s: %w", w.id, job.ID, err)
		}
		w.state.Store(int32(core.StateIdle))
	}
}
