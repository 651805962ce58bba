package pool

import (
	"context"
	"errors"
	"sync"

	"github.com/nemanja-m/enhancify/internal/coordinator/core"
	"github.com/nemanja-m/enhancify/internal/shared/logging"
	workercore "github.com/nemanja-m/enhancify/internal/worker/core"
	"github.com/nemanja-m/enhancify/internal/worker/service"
	"github.com/nemanja-m/enhancify/pkg/types"
)

var ErrTerminated = errors.New("worker already terminated")

// LocalPool runs workers as goroutines. Each worker has its own unbuffered
// job channel; closing it is the terminate directive.
type LocalPool struct {
	workers []*localWorker
	results chan types.JobResult
	wg      sync.WaitGroup
}

type localWorker struct {
	id   int
	jobs chan types.JobSpec
	done chan struct{}

	mu         sync.Mutex
	terminated bool
}

// NewLocalPool starts size workers with IDs 1..size running executor.
func NewLocalPool(ctx context.Context, size int, executor workercore.JobExecutor, logger logging.Logger) *LocalPool {
	p := &LocalPool{
		results: make(chan types.JobResult, size),
	}

	for id := 1; id <= size; id++ {
		w := &localWorker{
			id:   id,
			jobs: make(chan types.JobSpec),
			done: make(chan struct{}),
		}
		p.workers = append(p.workers, w)

		conn := &chanConn{jobs: w.jobs, results: p.results}
		svc := service.NewWorkerService(id, conn, executor, logger)
		p.wg.Go(func() {
			defer close(w.done)
			if err := svc.Run(ctx); err != nil {
				logger.Error("Worker stopped", "worker_id", id, "error", err)
			}
		})
	}
	return p
}

func (p *LocalPool) Workers() []core.WorkerHandle {
	handles := make([]core.WorkerHandle, len(p.workers))
	for i, w := range p.workers {
		handles[i] = w
	}
	return handles
}

func (p *LocalPool) Results() <-chan types.JobResult {
	return p.results
}

// Close terminates any worker still running and waits for all of them to
// exit.
func (p *LocalPool) Close(ctx context.Context) error {
	for _, w := range p.workers {
		_ = w.Terminate(ctx)
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *localWorker) ID() int {
	return w.id
}

func (w *localWorker) Assign(ctx context.Context, job types.JobSpec) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.terminated {
		return ErrTerminated
	}

	select {
	case w.jobs <- job:
		return nil
	case <-w.done:
		return core.ErrWorkerLost
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *localWorker) Terminate(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.terminated {
		w.terminated = true
		close(w.jobs)
	}
	return nil
}

// chanConn connects an in-process worker to its pool.
type chanConn struct {
	jobs    <-chan types.JobSpec
	results chan<- types.JobResult
}

func (c *chanConn) Next(ctx context.Context) (*types.JobSpec, error) {
	select {
	case job, ok := <-c.jobs:
		if !ok {
			return nil, nil
		}
		return &job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *chanConn) Report(ctx context.Context, result types.JobResult) error {
	select {
	case c.results <- result:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *chanConn) Close() error {
	return nil
}
