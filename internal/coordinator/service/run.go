package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/nemanja-m/enhancify/internal/coordinator/core"
	"github.com/nemanja-m/enhancify/internal/coordinator/storage"
	"github.com/nemanja-m/enhancify/internal/metrics"
	"github.com/nemanja-m/enhancify/internal/shared/config"
	"github.com/nemanja-m/enhancify/internal/shared/logging"
	workercore "github.com/nemanja-m/enhancify/internal/worker/core"
	"github.com/nemanja-m/enhancify/pkg/types"
)

var ErrAllJobsFailed = errors.New("no image was enhanced")

type Mode string

const (
	ModeSequential  Mode = "sequential"
	ModeDistributed Mode = "distributed"
)

// RunService executes one invocation: resolve inputs, run every job
// sequentially or on a worker pool, and report.
type RunService struct {
	cfg      *config.RunConfig
	warnings []config.Warning
	executor workercore.JobExecutor
	launcher core.PoolLauncher
	metrics  *metrics.Collector
	logger   logging.Logger
	out      io.Writer
}

func NewRunService(
	cfg *config.RunConfig,
	warnings []config.Warning,
	executor workercore.JobExecutor,
	launcher core.PoolLauncher,
	collector *metrics.Collector,
	logger logging.Logger,
	out io.Writer,
) *RunService {
	if collector == nil {
		collector = metrics.New(nil)
	}
	return &RunService{
		cfg:      cfg,
		warnings: warnings,
		executor: executor,
		launcher: launcher,
		metrics:  collector,
		logger:   logger,
		out:      out,
	}
}

// Run returns the report of the batch. The report is also returned together
// with ErrAllJobsFailed when not a single job succeeded.
func (s *RunService) Run(ctx context.Context) (*Report, error) {
	runID := uuid.New()
	logger := s.logger.With("run_id", runID.String())
	runner := *s
	runner.logger = logger
	return runner.run(ctx, runID)
}

func (s *RunService) run(ctx context.Context, runID uuid.UUID) (*Report, error) {
	for _, w := range s.warnings {
		s.logger.Warn("Invalid setting replaced by default", "setting", w.Setting, "warning", w.String())
	}

	paths, skipped, err := s.resolveInputs()
	if err != nil {
		return nil, err
	}

	jobs, err := core.BuildJobs(paths, s.cfg.Output, s.cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:    runID,
		Warnings: s.warnings,
		Skipped:  skipped,
		Settings: s.cfg.Algorithm,
	}

	if s.cfg.Distributed && len(jobs) > 1 {
		report.Mode = ModeDistributed
		report.Workers = s.cfg.Cores
	} else {
		report.Mode = ModeSequential
		report.Workers = 1
	}
	if s.cfg.Verbose {
		report.WriteBanner(s.out)
	}

	switch report.Mode {
	case ModeDistributed:
		report.Summary, report.Mechanism, err = s.runDistributed(ctx, jobs)
	default:
		report.Summary, err = s.runSequential(ctx, jobs)
	}
	if err != nil {
		return report, err
	}

	report.Write(s.out, s.cfg.Verbose)
	if !report.Succeeded() {
		return report, ErrAllJobsFailed
	}
	return report, nil
}

func (s *RunService) resolveInputs() ([]string, []core.Skipped, error) {
	if s.cfg.Image != "" {
		path, err := core.ResolveImage(s.cfg.Image)
		if err != nil {
			return nil, nil, err
		}
		return []string{path}, nil, nil
	}

	discovery, err := core.DiscoverImages(s.cfg.Folder)
	if err != nil {
		return nil, nil, err
	}
	for _, skipped := range discovery.Skipped {
		s.logger.Warn("Skipping input", "path", skipped.Path, "reason", skipped.Err)
	}
	return discovery.Accepted, discovery.Skipped, nil
}

// runSequential executes every job on the calling goroutine as worker 0.
func (s *RunService) runSequential(ctx context.Context, jobs []types.JobSpec) (*core.BatchSummary, error) {
	start := time.Now()
	summary := &core.BatchSummary{TotalJobs: len(jobs)}

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		result := s.executor.Execute(ctx, 0, job)
		s.metrics.ObserveResult(result.Elapsed, result.Failed())
		summary.Results = append(summary.Results, result)
	}

	summary.Elapsed = time.Since(start)
	s.metrics.BatchDuration.Observe(summary.Elapsed.Seconds())
	return summary, nil
}

func (s *RunService) runDistributed(ctx context.Context, jobs []types.JobSpec) (*core.BatchSummary, string, error) {
	pool, mechanism, err := s.launcher.Launch(ctx, s.cfg.Cores)
	if err != nil {
		return nil, "", err
	}

	dispatcher := core.NewDispatcher(pool, storage.NewInMemoryJobLedger(), s.logger, core.WithMetrics(s.metrics))
	summary, dispatchErr := dispatcher.Dispatch(ctx, jobs)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Launch.ShutdownTimeout)
	defer cancel()
	if err := pool.Close(closeCtx); err != nil {
		s.logger.Warn("Workers did not shut down cleanly", "mechanism", mechanism, "error", err)
	}

	if dispatchErr != nil {
		return summary, mechanism, fmt.Errorf("dispatch failed: %w", dispatchErr)
	}
	return summary, mechanism, nil
}
