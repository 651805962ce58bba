package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nemanja-m/enhancify/internal/metrics"
	"github.com/nemanja-m/enhancify/internal/shared/logging"
	"github.com/nemanja-m/enhancify/pkg/types"
)

// Dispatcher hands a batch of jobs to the workers of a pool. Every worker
// starts with one job; whichever worker finishes first gets the next pending
// job. It is not safe for concurrent use.
type Dispatcher struct {
	pool    Pool
	ledger  JobLedger
	logger  logging.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

type DispatcherOption func(*Dispatcher)

func WithMetrics(c *metrics.Collector) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = c
	}
}

func WithTracer(t trace.Tracer) DispatcherOption {
	return func(d *Dispatcher) {
		d.tracer = t
	}
}

func NewDispatcher(pool Pool, ledger JobLedger, logger logging.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		pool:   pool,
		ledger: ledger,
		logger: logger.With("component", "dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = metrics.New(nil)
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer("enhancify/dispatcher")
	}
	return d
}

type inFlight struct {
	worker WorkerHandle
	job    types.JobSpec
}

// batch is the dispatcher state of a single Dispatch call.
type batch struct {
	summary    *BatchSummary
	pending    JobQueue
	idle       []WorkerHandle
	assigned   map[uuid.UUID]inFlight
	retired    map[int]bool
	terminated map[int]bool
}

// Dispatch runs jobs to completion on the pool and returns one result per
// job. Every worker is terminated exactly once before Dispatch returns, also
// when ctx is cancelled, in which case the partial summary and ctx's error are
// returned.
func (d *Dispatcher) Dispatch(ctx context.Context, jobs []types.JobSpec) (*BatchSummary, error) {
	start := time.Now()
	workers := d.pool.Workers()

	ctx, span := d.tracer.Start(ctx, "dispatcher.Dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.Int("batch.jobs", len(jobs)),
		attribute.Int("batch.workers", len(workers)),
	)

	b := &batch{
		summary:    &BatchSummary{TotalJobs: len(jobs), Results: make([]types.JobResult, 0, len(jobs))},
		pending:    NewJobQueue(jobs...),
		idle:       append([]WorkerHandle(nil), workers...),
		assigned:   make(map[uuid.UUID]inFlight, len(workers)),
		retired:    make(map[int]bool),
		terminated: make(map[int]bool, len(workers)),
	}

	defer func() {
		d.terminateAll(context.WithoutCancel(ctx), b, workers)
		b.summary.Elapsed = time.Since(start)
		d.metrics.BatchDuration.Observe(b.summary.Elapsed.Seconds())
	}()

	if err := d.ledger.Register(jobs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to register jobs")
		return b.summary, fmt.Errorf("failed to register jobs: %w", err)
	}

	d.logger.Info("Dispatching batch", "jobs", len(jobs), "workers", len(workers))

	d.fill(ctx, b)
	results := d.pool.Results()
	for len(b.summary.Results) < len(jobs) {
		if len(b.assigned) == 0 {
			// Nobody can take the remaining jobs.
			d.failPending(b, ErrNoWorkers)
			break
		}

		select {
		case <-ctx.Done():
			err := ctx.Err()
			span.RecordError(err)
			span.SetStatus(codes.Error, "dispatch cancelled")
			d.logger.Warn("Dispatch cancelled", "collected", len(b.summary.Results), "total", len(jobs), "error", err)
			return b.summary, err
		case result, ok := <-results:
			if !ok {
				d.logger.Error("Pool closed its result channel", "in_flight", len(b.assigned))
				d.failInFlight(b, ErrWorkerLost)
				continue
			}
			d.collect(b, result)
			d.fill(ctx, b)
		}
	}

	span.SetAttributes(attribute.Int("batch.failed", len(b.summary.Failed())))
	return b.summary, nil
}

// fill assigns pending jobs to idle workers, oldest idle worker first.
func (d *Dispatcher) fill(ctx context.Context, b *batch) {
	for b.pending.Len() > 0 && len(b.idle) > 0 {
		worker := b.idle[0]
		b.idle = b.idle[1:]

		job, err := b.pending.Pop()
		if err != nil {
			return
		}

		if err := d.assign(ctx, worker, job); err != nil {
			d.logger.Error("Failed to assign job, retiring worker",
				"job_id", job.ID.String(),
				"worker_id", worker.ID(),
				"error", err,
			)
			b.retired[worker.ID()] = true
			d.record(b, types.JobResult{
				JobID:     job.ID,
				InputPath: job.InputPath,
				WorkerID:  worker.ID(),
				Err:       types.NewJobError(job.InputPath, err),
			})
			continue
		}
		b.assigned[job.ID] = inFlight{worker: worker, job: job}
	}
}

func (d *Dispatcher) assign(ctx context.Context, worker WorkerHandle, job types.JobSpec) error {
	ctx, span := d.tracer.Start(ctx, "dispatcher.assign", trace.WithAttributes(
		attribute.String("job.id", job.ID.String()),
		attribute.String("job.input", job.InputPath),
		attribute.Int("worker.id", worker.ID()),
	))
	defer span.End()

	if err := d.ledger.Assign(job.ID, worker.ID()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger rejected assignment")
		return err
	}
	if err := worker.Assign(ctx, job); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "worker rejected assignment")
		return err
	}

	d.metrics.JobsDispatched.Inc()
	d.metrics.WorkersActive.Inc()
	d.logger.Debug("Assigned job", "job_id", job.ID.String(), "input", job.InputPath, "worker_id", worker.ID())
	return nil
}

// collect records a result reported by the pool and puts its worker back at
// the end of the idle queue. A worker that was lost is retired instead.
func (d *Dispatcher) collect(b *batch, result types.JobResult) {
	current, ok := b.assigned[result.JobID]
	if !ok || current.worker.ID() != result.WorkerID {
		d.logger.Warn("Ignoring result of a job that is not in flight",
			"job_id", result.JobID.String(),
			"worker_id", result.WorkerID,
		)
		return
	}
	if !d.record(b, result) {
		return
	}

	delete(b.assigned, result.JobID)
	d.metrics.WorkersActive.Dec()
	if errors.Is(result.Err, ErrWorkerLost) {
		b.retired[current.worker.ID()] = true
	}
	if !b.retired[current.worker.ID()] {
		b.idle = append(b.idle, current.worker)
	}

	if result.Failed() {
		d.logger.Warn("Job failed", "input", result.InputPath, "worker_id", result.WorkerID, "error", result.Err)
	} else {
		d.logger.Info("Job completed", "input", result.InputPath, "worker_id", result.WorkerID, "elapsed", result.Elapsed)
	}
}

// record appends a result once the ledger accepted it. Failures always carry
// a job error marker.
func (d *Dispatcher) record(b *batch, result types.JobResult) bool {
	if result.Failed() && !types.IsJobError(result.Err) {
		result.Err = types.NewJobError(result.InputPath, result.Err)
	}
	if err := d.ledger.Complete(result); err != nil {
		d.logger.Warn("Rejected result", "job_id", result.JobID.String(), "worker_id", result.WorkerID, "error", err)
		return false
	}
	b.summary.Results = append(b.summary.Results, result)
	d.metrics.ObserveResult(result.Elapsed, result.Failed())
	return true
}

func (d *Dispatcher) failPending(b *batch, cause error) {
	for b.pending.Len() > 0 {
		job, err := b.pending.Pop()
		if err != nil {
			return
		}
		d.record(b, types.JobResult{
			JobID:     job.ID,
			InputPath: job.InputPath,
			WorkerID:  -1,
			Err:       types.NewJobError(job.InputPath, cause),
		})
	}
}

func (d *Dispatcher) failInFlight(b *batch, cause error) {
	for jobID, current := range b.assigned {
		b.retired[current.worker.ID()] = true
		d.collect(b, types.JobResult{
			JobID:     jobID,
			InputPath: current.job.InputPath,
			WorkerID:  current.worker.ID(),
			Err:       types.NewJobError(current.job.InputPath, cause),
		})
	}
}

func (d *Dispatcher) terminateAll(ctx context.Context, b *batch, workers []WorkerHandle) {
	for _, worker := range workers {
		if b.terminated[worker.ID()] {
			continue
		}
		b.terminated[worker.ID()] = true
		b.summary.Terminated++
		if err := worker.Terminate(ctx); err != nil {
			d.logger.Warn("Failed to terminate worker", "worker_id", worker.ID(), "error", err)
		}
	}
	d.logger.Debug("Terminated workers", "count", b.summary.Terminated)
}
