package core

import (
	"container/heap"
	"errors"
	"sync"

	"github.com/nemanja-m/enhancify/pkg/types"
)

// ErrQueueEmpty is returned when Pop() is called on an empty queue.
var ErrQueueEmpty = errors.New("job queue is empty")

// JobQueue is a thread-safe min-heap of pending jobs, popping the job with the
// lowest Index first. Jobs with the same Index are served in FIFO order.
type JobQueue interface {
	Push(jobs ...types.JobSpec)
	Pop() (types.JobSpec, error)
	Len() int
}

type heapJobQueue struct {
	pq       priorityQueue
	mu       sync.RWMutex
	sequence uint64
}

func NewJobQueue(jobs ...types.JobSpec) JobQueue {
	pq := make(priorityQueue, 0, len(jobs))
	heap.Init(&pq)
	q := &heapJobQueue{pq: pq}
	q.Push(jobs...)
	return q
}

func (q *heapJobQueue) Push(jobs ...types.JobSpec) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, job := range jobs {
		heap.Push(&q.pq, &item{job: job, sequence: q.sequence})
		q.sequence++
	}
}

func (q *heapJobQueue) Pop() (types.JobSpec, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pq.Len() == 0 {
		return types.JobSpec{}, ErrQueueEmpty
	}
	it := heap.Pop(&q.pq).(*item)
	return it.job, nil
}

func (q *heapJobQueue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.pq.Len()
}

type item struct {
	job      types.JobSpec
	sequence uint64 // Insertion order for FIFO within the same index
	index    int    // Required by heap.Interface
}

// priorityQueue satisfies heap.Interface.
type priorityQueue []*item

func (pq priorityQueue) Len() int {
	return len(pq)
}

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].job.Index != pq[j].job.Index {
		return pq[i].job.Index < pq[j].job.Index
	}
	return pq[i].sequence < pq[j].sequence
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	n := len(*pq)
	it := x.(*item)
	it.index = n
	*pq = append(*pq, it)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*pq = old[0 : n-1]
	return it
}
