package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	grpcapi "github.com/nemanja-m/enhancify/internal/coordinator/api/grpc"
	"github.com/nemanja-m/enhancify/internal/coordinator/core"
	"github.com/nemanja-m/enhancify/internal/shared/config"
	"github.com/nemanja-m/enhancify/internal/shared/logging"
	"github.com/nemanja-m/enhancify/internal/shared/wire"
	"github.com/nemanja-m/enhancify/pkg/types"
)

var (
	ErrNotReady        = errors.New("workers did not attach in time")
	ErrUnknownWorker   = errors.New("unknown worker id")
	ErrAlreadyAttached = errors.New("worker already attached")
	ErrNotAttached     = errors.New("worker not attached")
)

// RemotePool drives workers running in other processes over the Attach
// stream. It serves the coordinator side of the dispatch service.
type RemotePool struct {
	size    int
	server  *grpcapi.Server
	spawner Spawner
	logger  logging.Logger

	addr    string
	workers []*remoteWorker
	results chan types.JobResult

	mu       sync.Mutex
	attached int
	ready    chan struct{}

	procs  []*spawned
	exits  chan *spawned
	served chan struct{}
}

type spawned struct {
	id   int
	proc Process
	err  error
	done chan struct{}
}

// NewRemotePool prepares a pool of size workers with IDs 1..size. Nothing
// runs until Start.
func NewRemotePool(cfg config.GRPCConfig, size int, spawner Spawner, logger logging.Logger) *RemotePool {
	p := &RemotePool{
		size:    size,
		spawner: spawner,
		logger:  logger.With("component", "remote-pool"),
		results: make(chan types.JobResult, size),
		ready:   make(chan struct{}),
		exits:   make(chan *spawned, size),
		served:  make(chan struct{}),
	}
	for id := 1; id <= size; id++ {
		p.workers = append(p.workers, &remoteWorker{
			id:       id,
			pool:     p,
			detached: make(chan struct{}),
		})
	}
	if size == 0 {
		close(p.ready)
	}
	p.server = grpcapi.NewServer(cfg, p, p.logger)
	return p
}

// Start serves the dispatch service, spawns every worker and waits until all
// of them attached. On failure everything started so far is torn down.
func (p *RemotePool) Start(ctx context.Context, readyTimeout time.Duration) error {
	addr, err := p.server.Listen()
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	p.addr = addr
	go func() {
		defer close(p.served)
		if err := p.server.Serve(); err != nil {
			p.logger.Error("Dispatch server failed", "error", err)
		}
	}()

	for id := 1; id <= p.size; id++ {
		proc, err := p.spawner.Spawn(ctx, addr, id)
		if err != nil {
			p.abort()
			return err
		}
		s := &spawned{id: id, proc: proc, done: make(chan struct{})}
		p.procs = append(p.procs, s)
		go func() {
			s.err = s.proc.Wait()
			close(s.done)
			p.exits <- s
		}()
	}

	timer := time.NewTimer(readyTimeout)
	defer timer.Stop()

	select {
	case <-p.ready:
		p.logger.Info("Workers attached", "count", p.size, "addr", addr)
		return nil
	case s := <-p.exits:
		p.abort()
		return fmt.Errorf("worker %d exited before attaching: %v", s.id, s.err)
	case <-timer.C:
		p.abort()
		return fmt.Errorf("%w: %d of %d after %s", ErrNotReady, p.attachedCount(), p.size, readyTimeout)
	case <-ctx.Done():
		p.abort()
		return ctx.Err()
	}
}

// Addr is the bound address of the dispatch service.
func (p *RemotePool) Addr() string {
	return p.addr
}

func (p *RemotePool) Workers() []core.WorkerHandle {
	handles := make([]core.WorkerHandle, len(p.workers))
	for i, w := range p.workers {
		handles[i] = w
	}
	return handles
}

func (p *RemotePool) Results() <-chan types.JobResult {
	return p.results
}

// Close terminates any worker still attached, waits until every stream ended
// and every process exited, then stops the server. When ctx expires first the
// processes are killed.
func (p *RemotePool) Close(ctx context.Context) error {
	for _, w := range p.workers {
		_ = w.Terminate(ctx)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, w := range p.workers {
			if w.wasAttached() {
				<-w.detached
			}
		}
		for _, s := range p.procs {
			<-s.done
		}
	}()

	select {
	case <-done:
		p.server.Stop()
		<-p.served
		return nil
	case <-ctx.Done():
		p.abort()
		return ctx.Err()
	}
}

func (p *RemotePool) abort() {
	for _, s := range p.procs {
		if err := s.proc.Kill(); err != nil {
			p.logger.Debug("Failed to kill worker", "worker_id", s.id, "error", err)
		}
	}
	p.server.ForceStop()
}

func (p *RemotePool) attachedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attached
}

func (p *RemotePool) worker(id int) (*remoteWorker, error) {
	if id < 1 || id > len(p.workers) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownWorker, id)
	}
	return p.workers[id-1], nil
}

func (p *RemotePool) Attach(workerID int, send grpcapi.Sender) error {
	w, err := p.worker(workerID)
	if err != nil {
		return err
	}

	w.mu.Lock()
	if w.send != nil || w.gone {
		w.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrAlreadyAttached, workerID)
	}
	w.send = send
	w.mu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.attached++
	if p.attached == p.size {
		close(p.ready)
	}
	return nil
}

func (p *RemotePool) Deliver(workerID int, result types.JobResult) {
	w, err := p.worker(workerID)
	if err != nil {
		return
	}

	w.mu.Lock()
	expected := w.inFlight != nil && w.inFlight.ID == result.JobID
	if expected {
		w.inFlight = nil
	}
	w.mu.Unlock()

	if !expected {
		p.logger.Warn("Dropping result of a job not in flight", "worker_id", workerID, "job_id", result.JobID.String())
		return
	}
	p.results <- result
}

// Detach turns a job still in flight on a lost stream into a failed result.
func (p *RemotePool) Detach(workerID int, cause error) {
	w, err := p.worker(workerID)
	if err != nil {
		return
	}

	w.mu.Lock()
	lost := w.inFlight
	w.inFlight = nil
	w.gone = true
	close(w.detached)
	w.mu.Unlock()

	if lost != nil {
		if cause == nil {
			cause = core.ErrWorkerLost
		} else {
			cause = fmt.Errorf("%w: %v", core.ErrWorkerLost, cause)
		}
		p.results <- types.JobResult{
			JobID:     lost.ID,
			InputPath: lost.InputPath,
			WorkerID:  workerID,
			Err:       types.NewJobError(lost.InputPath, cause),
		}
	}
}

var _ grpcapi.WorkerRegistry = (*RemotePool)(nil)

type remoteWorker struct {
	id       int
	pool     *RemotePool
	detached chan struct{}

	mu         sync.Mutex
	send       grpcapi.Sender
	inFlight   *types.JobSpec
	terminated bool
	gone       bool
}

func (w *remoteWorker) ID() int {
	return w.id
}

func (w *remoteWorker) wasAttached() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.send != nil
}

func (w *remoteWorker) Assign(_ context.Context, job types.JobSpec) error {
	envelope, err := wire.EncodeJob(job)
	if err != nil {
		return err
	}

	w.mu.Lock()
	switch {
	case w.gone:
		w.mu.Unlock()
		return core.ErrWorkerLost
	case w.send == nil:
		w.mu.Unlock()
		return ErrNotAttached
	case w.terminated:
		w.mu.Unlock()
		return ErrTerminated
	}
	w.inFlight = &job
	send := w.send
	w.mu.Unlock()

	if err := send(envelope); err != nil {
		w.mu.Lock()
		if w.inFlight != nil && w.inFlight.ID == job.ID {
			w.inFlight = nil
		}
		w.mu.Unlock()
		return fmt.Errorf("failed to send job to worker %d: %w", w.id, err)
	}
	return nil
}

func (w *remoteWorker) Terminate(context.Context) error {
	w.mu.Lock()
	if w.terminated {
		w.mu.Unlock()
		return nil
	}
	w.terminated = true
	send := w.send
	gone := w.gone
	w.mu.Unlock()

	if send == nil || gone {
		return nil
	}
	return send(wire.Terminate())
}
