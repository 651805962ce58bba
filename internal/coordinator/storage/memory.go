package storage

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/nemanja-m/enhancify/internal/coordinator/core"
	"github.com/nemanja-m/enhancify/pkg/types"
)

type ledgerEntry struct {
	job       types.JobSpec
	workerID  int
	assigned  bool
	completed bool
}

type InMemoryJobLedger struct {
	mu          sync.RWMutex
	entries     map[uuid.UUID]*ledgerEntry
	assignments map[int][]uuid.UUID // workerID -> jobs in assignment order
	pending     int
}

func NewInMemoryJobLedger() *InMemoryJobLedger {
	return &InMemoryJobLedger{
		entries:     make(map[uuid.UUID]*ledgerEntry),
		assignments: make(map[int][]uuid.UUID),
	}
}

// Register adds jobs to the ledger. Nothing is registered if any ID is
// already known or repeated.
func (l *InMemoryJobLedger) Register(jobs ...types.JobSpec) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[uuid.UUID]bool, len(jobs))
	for _, job := range jobs {
		if _, exists := l.entries[job.ID]; exists || seen[job.ID] {
			return fmt.Errorf("%w: %s", core.ErrDuplicateJob, job.ID)
		}
		seen[job.ID] = true
	}

	for _, job := range jobs {
		l.entries[job.ID] = &ledgerEntry{job: job}
	}
	l.pending += len(jobs)
	return nil
}

func (l *InMemoryJobLedger) Assign(jobID uuid.UUID, workerID int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.entries[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", core.ErrUnknownJob, jobID)
	}
	if entry.assigned {
		return fmt.Errorf("%w: %s to worker %d", core.ErrAlreadyAssigned, jobID, entry.workerID)
	}
	if entry.completed {
		return fmt.Errorf("%w: %s", core.ErrAlreadyCompleted, jobID)
	}

	entry.assigned = true
	entry.workerID = workerID
	l.assignments[workerID] = append(l.assignments[workerID], jobID)
	return nil
}

func (l *InMemoryJobLedger) Complete(result types.JobResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.entries[result.JobID]
	if !exists {
		return fmt.Errorf("%w: %s", core.ErrUnknownJob, result.JobID)
	}
	if entry.completed {
		return fmt.Errorf("%w: %s", core.ErrAlreadyCompleted, result.JobID)
	}
	if entry.assigned && entry.workerID != result.WorkerID {
		return fmt.Errorf("%w: job %s, worker %d", core.ErrWorkerMismatch, result.JobID, result.WorkerID)
	}
	if !entry.assigned && !result.Failed() {
		return fmt.Errorf("job %s was never assigned: %w", result.JobID, core.ErrUnknownJob)
	}

	entry.completed = true
	l.pending--
	return nil
}

func (l *InMemoryJobLedger) Assignments() map[int][]uuid.UUID {
	l.mu.RLock()
	defer l.mu.RUnlock()

	assignments := make(map[int][]uuid.UUID, len(l.assignments))
	for workerID, jobs := range l.assignments {
		assignments[workerID] = slices.Clone(jobs)
	}
	return assignments
}

func (l *InMemoryJobLedger) Pending() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pending
}

// Workers returns the IDs of workers that received at least one job, sorted.
func (l *InMemoryJobLedger) Workers() []int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Sorted(maps.Keys(l.assignments))
}

var _ core.JobLedger = (*InMemoryJobLedger)(nil)
