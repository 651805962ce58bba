package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nemanja-m/enhancify/internal/coordinator/pool"
	"github.com/nemanja-m/enhancify/internal/coordinator/service"
	"github.com/nemanja-m/enhancify/internal/enhance"
	"github.com/nemanja-m/enhancify/internal/metrics"
	"github.com/nemanja-m/enhancify/internal/shared/config"
	"github.com/nemanja-m/enhancify/internal/shared/logging"
	"github.com/nemanja-m/enhancify/internal/tracing"
	"github.com/nemanja-m/enhancify/internal/worker/api/grpc"
	workersvc "github.com/nemanja-m/enhancify/internal/worker/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "worker" {
		return runWorker(ctx, args[1:], stderr)
	}

	cfg, warnings, err := config.LoadRun(args)
	if err != nil {
		return fail(err, warnings, stdout, stderr)
	}

	logger, err := logging.NewZapLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create logger: %v\n", err)
		return exitCode(err)
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	collector := metrics.New(registry)
	if cfg.Metrics.Addr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.Serve(metricsCtx, cfg.Metrics.Addr, registry, logger); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(tracing.ServiceName, stderr)
		if err != nil {
			logger.Error("Failed to initialize tracing", "error", err)
			return exitCode(err)
		}
		defer func() {
			if err := shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("Failed to flush spans", "error", err)
			}
		}()
	}

	executor := workersvc.NewExecutor(enhance.NewGAEnhancer(logger), logger)
	spawner := &pool.ExecSpawner{
		LogLevel:  cfg.Logging.Level,
		LogFormat: cfg.Logging.Format,
		Stdout:    stderr,
		Stderr:    stderr,
	}
	launcher := pool.NewLauncher(cfg.Launch, cfg.GRPC, executor, spawner, collector, logger)

	svc := service.NewRunService(cfg, warnings, executor, launcher, collector, logger, stdout)
	if _, err := svc.Run(ctx); err != nil {
		logger.Error("Run failed", "error", err)
		return exitCode(err)
	}
	return 0
}

func runWorker(ctx context.Context, args []string, stderr io.Writer) int {
	cfg, err := config.LoadWorker(args)
	if err != nil {
		fmt.Fprintf(stderr, "enhancify worker: %v\n", err)
		return exitCode(err)
	}

	logger, err := logging.NewZapLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create logger: %v\n", err)
		return exitCode(err)
	}
	defer logger.Sync()
	logger = logger.With("worker_id", cfg.ID)

	client, err := grpc.NewCoordinatorClient(cfg.Coordinator, cfg.ID)
	if err != nil {
		logger.Error("Failed to create coordinator client", "error", err)
		return exitCode(err)
	}
	defer client.Close()

	if err := client.Attach(ctx); err != nil {
		logger.Error("Failed to attach to coordinator", "addr", cfg.Coordinator.Addr, "error", err)
		return exitCode(err)
	}
	logger.Debug("Worker attached", "addr", cfg.Coordinator.Addr)

	executor := workersvc.NewExecutor(enhance.NewGAEnhancer(logger), logger)
	if err := workersvc.NewWorkerService(cfg.ID, client, executor, logger).Run(ctx); err != nil {
		logger.Error("Worker stopped", "error", err)
		return exitCode(err)
	}
	return 0
}

// fail reports a configuration error after any settings that were replaced
// by defaults. Help goes to stdout; everything else goes to stderr, followed
// by the usage text for command line mistakes.
func fail(err error, warnings []config.Warning, stdout, stderr io.Writer) int {
	for _, w := range warnings {
		fmt.Fprintf(stderr, "Warning: %s\n", w)
	}
	switch {
	case errors.Is(err, config.ErrHelp):
		fmt.Fprint(stdout, config.RunUsage())
	case errors.Is(err, config.ErrUsage), errors.Is(err, config.ErrNoOptions):
		fmt.Fprintf(stderr, "enhancify: %v\n\n%s", err, config.RunUsage())
	default:
		fmt.Fprintf(stderr, "enhancify: %v\n", err)
	}
	return exitCode(err)
}
