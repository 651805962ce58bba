package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nemanja-m/enhancify/internal/shared/logging"
)

const namespace = "enhancify"

// Collector groups the dispatcher and worker metrics of one run.
type Collector struct {
	// JobsDispatched counts jobs handed to a worker.
	JobsDispatched prometheus.Counter
	// JobsCompleted counts results by status (success / failed).
	JobsCompleted *prometheus.CounterVec
	JobDuration   prometheus.Histogram
	// WorkersActive is the number of workers currently holding a job.
	WorkersActive prometheus.Gauge
	// WorkersLaunched counts workers by launch mechanism.
	WorkersLaunched *prometheus.CounterVec
	BatchDuration   prometheus.Histogram
}

// New registers the collectors with reg. A nil reg uses a private registry,
// so repeated calls never collide.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Collector{
		JobsDispatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_dispatched_total",
			Help:      "Total number of jobs assigned to workers.",
		}),
		JobsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Total number of job results collected, by status.",
		}, []string{"status"}),
		JobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall-clock duration of a single enhancement job.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		WorkersActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_active",
			Help:      "Number of workers currently processing a job.",
		}),
		WorkersLaunched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workers_launched_total",
			Help:      "Total number of workers started, by launch mechanism.",
		}, []string{"mechanism"}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall-clock duration of a whole batch.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
		}),
	}
}

// ObserveResult records one collected result.
func (c *Collector) ObserveResult(elapsed time.Duration, failed bool) {
	status := "success"
	if failed {
		status = "failed"
	}
	c.JobsCompleted.WithLabelValues(status).Inc()
	c.JobDuration.Observe(elapsed.Seconds())
}

// Serve exposes the gatherer on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", chain(
		promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		withScrapeLogging(logger),
		withRecovery(logger),
	))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown failed", "error", err)
		}
	}()

	logger.Info("Serving metrics", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
