// Package metrics exposes Prometheus collectors for the pipeline service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	signalsCollectedTotal  *prometheus.CounterVec
	collectionErrorsTotal  *prometheus.CounterVec
	signalsClassifiedTotal *prometheus.CounterVec
	moviesAggregatedTotal  prometheus.Counter
	jobsTotal              *prometheus.CounterVec
	jobDurationSeconds     *prometheus.HistogramVec
	activeWorkers          prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		signalsCollectedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radar_signals_collected_total",
				Help: "Total number of newly stored signals, labeled by source type.",
			},
			[]string{"source_type"},
		)

		collectionErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radar_collection_errors_total",
				Help: "Total number of failed source checks, labeled by source type.",
			},
			[]string{"source_type"},
		)

		signalsClassifiedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radar_signals_classified_total",
				Help: "Total number of classification attempts, labeled by outcome.",
			},
			[]string{"status"},
		)

		moviesAggregatedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "radar_movies_aggregated_total",
				Help: "Total number of movies whose aggregates were recomputed.",
			},
		)

		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radar_jobs_total",
				Help: "Total number of jobs processed, labeled by name and status.",
			},
			[]string{"name", "status"},
		)

		jobDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "radar_job_duration_seconds",
				Help:    "Histogram of job execution latencies, labeled by name.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 600},
			},
			[]string{"name"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "radar_active_workers",
				Help: "Number of workers currently processing a job.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCollection records newly stored signals for a source type.
func ObserveCollection(sourceType string, newSignals int) {
	if signalsCollectedTotal == nil {
		return
	}
	signalsCollectedTotal.WithLabelValues(sourceType).Add(float64(newSignals))
}

// IncCollectionError records a failed source check.
func IncCollectionError(sourceType string) {
	if collectionErrorsTotal == nil {
		return
	}
	collectionErrorsTotal.WithLabelValues(sourceType).Inc()
}

// ObserveClassification records classification outcomes ("classified" or "failed").
func ObserveClassification(status string, count int) {
	if signalsClassifiedTotal == nil {
		return
	}
	signalsClassifiedTotal.WithLabelValues(status).Add(float64(count))
}

// ObserveAggregation records recomputed movie aggregates.
func ObserveAggregation(movies int) {
	if moviesAggregatedTotal == nil {
		return
	}
	moviesAggregatedTotal.Add(float64(movies))
}

// ObserveJob records a finished job with its outcome and duration.
func ObserveJob(name, status string, elapsed time.Duration) {
	if jobsTotal == nil {
		return
	}
	jobsTotal.WithLabelValues(name, status).Inc()
	jobDurationSeconds.WithLabelValues(name).Observe(elapsed.Seconds())
}

// WorkerStarted marks a worker as busy.
func WorkerStarted() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Inc()
}

// WorkerStopped marks a worker as idle.
func WorkerStopped() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Dec()
}
