package core

import (
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/nemanja-m/enhancify/pkg/types"
)

func createTestJob(index int) types.JobSpec {
	return types.JobSpec{
		ID:        uuid.New(),
		Index:     index,
		InputPath: "in.png",
	}
}

func TestNewJobQueue(t *testing.T) {
	q := NewJobQueue()
	if q == nil {
		t.Fatal("NewJobQueue returned nil")
	}
	if q.Len() != 0 {
		t.Errorf("expected new queue to have length 0, got %d", q.Len())
	}

	q = NewJobQueue(createTestJob(0), createTestJob(1))
	if q.Len() != 2 {
		t.Errorf("expected seeded queue to have length 2, got %d", q.Len())
	}
}

func TestJobQueue_Pop(t *testing.T) {
	t.Run("pop from empty queue returns error", func(t *testing.T) {
		q := NewJobQueue()
		_, err := q.Pop()
		if err != ErrQueueEmpty {
			t.Errorf("expected ErrQueueEmpty, got %v", err)
		}
	})

	t.Run("pop returns jobs by index", func(t *testing.T) {
		q := NewJobQueue(createTestJob(2), createTestJob(0), createTestJob(1))
		for want := range 3 {
			job, err := q.Pop()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if job.Index != want {
				t.Errorf("expected index %d, got %d", want, job.Index)
			}
		}
		if q.Len() != 0 {
			t.Errorf("expected empty queue, got %d", q.Len())
		}
	})

	t.Run("same index is FIFO", func(t *testing.T) {
		first := createTestJob(0)
		second := createTestJob(0)
		q := NewJobQueue(first, second)

		job, _ := q.Pop()
		if job.ID != first.ID {
			t.Errorf("expected first pushed job, got %s", job.ID)
		}
		job, _ = q.Pop()
		if job.ID != second.ID {
			t.Errorf("expected second pushed job, got %s", job.ID)
		}
	})
}

func TestJobQueue_Concurrent(t *testing.T) {
	q := NewJobQueue()
	numJobs := 200
	for i := range numJobs {
		q.Push(createTestJob(i))
	}

	var wg sync.WaitGroup
	popped := make(chan types.JobSpec, numJobs)
	for range 10 {
		wg.Go(func() {
			for {
				job, err := q.Pop()
				if err == ErrQueueEmpty {
					return
				}
				popped <- job
			}
		})
	}
	wg.Wait()
	close(popped)

	seen := make(map[uuid.UUID]bool)
	for job := range popped {
		if seen[job.ID] {
			t.Errorf("job %s popped twice", job.ID)
		}
		seen[job.ID] = true
	}
	if len(seen) != numJobs {
		t.Errorf("expected %d jobs popped, got %d", numJobs, len(seen))
	}
}
