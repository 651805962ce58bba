package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nemanja-m/enhancify/internal/shared/logging"
	"github.com/nemanja-m/enhancify/internal/worker/core"
	"github.com/nemanja-m/enhancify/pkg/types"
)

type enhanceExecutor struct {
	enhancer core.Enhancer
	logger   logging.Logger
}

func NewExecutor(enhancer core.Enhancer, logger logging.Logger) core.JobExecutor {
	return &enhanceExecutor{
		enhancer: enhancer,
		logger:   logger,
	}
}

func (e *enhanceExecutor) Execute(ctx context.Context, workerID int, job types.JobSpec) (result types.JobResult) {
	start := time.Now()
	result = types.JobResult{
		JobID:     job.ID,
		InputPath: job.InputPath,
		WorkerID:  workerID,
	}

	defer func() {
		if r := recover(); r != nil {
			result.Err = types.NewJobError(job.InputPath, fmt.Errorf("panic: %v", r))
		}
		result.Elapsed = time.Since(start)

		if result.Failed() {
			e.logger.Error("Job failed", "input", job.InputPath, "worker_id", workerID, "error", result.Err)
		} else {
			e.logger.Info("Analyzed image",
				"input", job.InputPath,
				"worker_id", workerID,
				"elapsed", result.Elapsed.Round(10*time.Millisecond).String(),
			)
		}
	}()

	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		result.Err = types.NewJobError(job.InputPath, fmt.Errorf("failed to create output folder: %w", err))
		return result
	}
	if err := e.enhancer.Enhance(ctx, job.InputPath, job.OutputDir, job.Config); err != nil {
		result.Err = types.NewJobError(job.InputPath, err)
	}
	return result
}
