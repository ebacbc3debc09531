package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// jobMetrics holds Prometheus metrics shared by the scheduled jobs.
type jobMetrics struct {
	runsTotal   *prometheus.CounterVec
	itemsTotal  *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
}

// Singleton pattern for metrics (avoid double registration in tests).
var (
	jobMetricsInstance *jobMetrics
	jobMetricsOnce     sync.Once
	jobMetricsRegistry = prometheus.DefaultRegisterer
)

// newJobMetrics initializes and registers job metrics using singleton pattern.
func newJobMetrics() *jobMetrics {
	jobMetricsOnce.Do(func() {
		jobMetricsInstance = &jobMetrics{
			runsTotal: promauto.With(jobMetricsRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "modular_health_job_runs_total",
				Help: "Total number of job runs by job name and result",
			}, []string{"job", "result"}),
			itemsTotal: promauto.With(jobMetricsRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "modular_health_job_items_total",
				Help: "Total number of routine variables processed by job and outcome",
			}, []string{"job", "status"}),
			runDuration: promauto.With(jobMetricsRegistry).NewHistogramVec(prometheus.HistogramOpts{
				Name:    "modular_health_job_run_duration_seconds",
				Help:    "Time taken for one job run",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			}, []string{"job"}),
		}
	})
	return jobMetricsInstance
}

// resetJobMetricsForTesting resets the metrics singleton for test isolation.
// This should only be called from tests.
func resetJobMetricsForTesting() {
	jobMetricsRegistry = prometheus.NewRegistry()
	jobMetricsInstance = nil
	jobMetricsOnce = sync.Once{}
}
