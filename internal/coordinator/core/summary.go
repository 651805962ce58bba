package core

import (
	"time"

	"github.com/nemanja-m/enhancify/pkg/types"
)

// BatchSummary is what a dispatch produced. Results are in completion order.
type BatchSummary struct {
	TotalJobs  int
	Results    []types.JobResult
	Terminated int
	Elapsed    time.Duration
}

func (s *BatchSummary) Durations() []time.Duration {
	durations := make([]time.Duration, len(s.Results))
	for i, r := range s.Results {
		durations[i] = r.Elapsed
	}
	return durations
}

// Mean returns the mean per-job duration, zero for an empty batch.
func (s *BatchSummary) Mean() time.Duration {
	if len(s.Results) == 0 {
		return 0
	}
	var total time.Duration
	for _, r := range s.Results {
		total += r.Elapsed
	}
	return total / time.Duration(len(s.Results))
}

func (s *BatchSummary) Failed() []types.JobResult {
	var failed []types.JobResult
	for _, r := range s.Results {
		if r.Failed() {
			failed = append(failed, r)
		}
	}
	return failed
}

// Succeeded returns the number of jobs that finished without an error.
func (s *BatchSummary) Succeeded() int {
	return len(s.Results) - len(s.Failed())
}
