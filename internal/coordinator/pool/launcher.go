package pool

import (
	"context"
	"errors"
	"fmt"

	"github.com/nemanja-m/enhancify/internal/coordinator/core"
	"github.com/nemanja-m/enhancify/internal/metrics"
	"github.com/nemanja-m/enhancify/internal/shared/config"
	"github.com/nemanja-m/enhancify/internal/shared/logging"
	workercore "github.com/nemanja-m/enhancify/internal/worker/core"
)

var ErrLaunchFailed = errors.New("failed to launch workers")

// LaunchError records why one launch mechanism could not start the pool.
type LaunchError struct {
	Mechanism string
	Err       error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch mechanism %q failed: %v", e.Mechanism, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Launcher starts a worker pool, trying the configured mechanisms in order.
type Launcher struct {
	cfg      config.LaunchConfig
	grpcCfg  config.GRPCConfig
	executor workercore.JobExecutor
	spawner  Spawner
	metrics  *metrics.Collector
	logger   logging.Logger
}

func NewLauncher(
	cfg config.LaunchConfig,
	grpcCfg config.GRPCConfig,
	executor workercore.JobExecutor,
	spawner Spawner,
	collector *metrics.Collector,
	logger logging.Logger,
) *Launcher {
	if collector == nil {
		collector = metrics.New(nil)
	}
	return &Launcher{
		cfg:      cfg,
		grpcCfg:  grpcCfg,
		executor: executor,
		spawner:  spawner,
		metrics:  collector,
		logger:   logger.With("component", "launcher"),
	}
}

// Launch returns a ready pool of size workers and the mechanism that started
// it. A failing mechanism is logged and the next one is tried; the error joins
// every LaunchError when none succeeds.
func (l *Launcher) Launch(ctx context.Context, size int) (core.Pool, string, error) {
	var errs []error
	for _, mechanism := range l.cfg.Mechanisms {
		pool, err := l.launch(ctx, mechanism, size)
		if err == nil {
			l.metrics.WorkersLaunched.WithLabelValues(mechanism).Add(float64(size))
			l.logger.Info("Workers launched", "mechanism", mechanism, "workers", size)
			return pool, mechanism, nil
		}

		launchErr := &LaunchError{Mechanism: mechanism, Err: err}
		l.logger.Warn("Launch mechanism failed, trying the next one", "mechanism", mechanism, "error", err)
		errs = append(errs, launchErr)

		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no launch mechanisms configured"))
	}
	return nil, "", fmt.Errorf("%w: %w", ErrLaunchFailed, errors.Join(errs...))
}

func (l *Launcher) launch(ctx context.Context, mechanism string, size int) (core.Pool, error) {
	switch mechanism {
	case config.MechanismProcess:
		if l.spawner == nil {
			return nil, errors.New("no process spawner configured")
		}
		pool := NewRemotePool(l.grpcCfg, size, l.spawner, l.logger)
		if err := pool.Start(ctx, l.cfg.ReadyTimeout); err != nil {
			return nil, err
		}
		return pool, nil
	case config.MechanismInProcess:
		return NewLocalPool(ctx, size, l.executor, l.logger), nil
	default:
		return nil, fmt.Errorf("unknown mechanism %q", mechanism)
	}
}
