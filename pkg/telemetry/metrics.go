package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the orchestrator.
type Metrics struct {
	config MetricsConfig

	// Run metrics
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	// Poll metrics
	statusChecks       prometheus.Counter
	statusChecksPerRun prometheus.Histogram

	// Phase metrics
	phaseTransitions *prometheus.CounterVec

	// Remote metrics
	remoteCalls    *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	remoteErrors   *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec

	// System metrics
	activeRuns prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	// Create a new registry
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		// Run metrics
		runsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Total number of runs started",
			},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of runs completed",
			},
			[]string{"outcome"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of run execution in seconds",
				Buckets:   buckets,
			},
			[]string{"outcome"},
		),

		// Poll metrics
		statusChecks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_checks_total",
				Help:      "Total number of remote status checks",
			},
		),
		statusChecksPerRun: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "status_checks_per_run",
				Help:      "Number of status checks performed per run",
				Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
			},
		),

		// Phase metrics
		phaseTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "phase_transitions_total",
				Help:      "Total number of run phase transitions",
			},
			[]string{"from", "to"},
		),

		// Remote metrics
		remoteCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_calls_total",
				Help:      "Total number of remote protocol calls",
			},
			[]string{"operation"},
		),
		remoteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "remote_call_duration_seconds",
				Help:      "Duration of remote protocol calls in seconds",
				Buckets:   buckets,
			},
			[]string{"operation"},
		),
		remoteErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_errors_total",
				Help:      "Total number of remote protocol errors",
			},
			[]string{"operation"},
		),

		// Error metrics
		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of run failures by error class",
			},
			[]string{"class"},
		),

		// System metrics
		activeRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_runs",
				Help:      "Current number of active runs",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runDuration,
		m.statusChecks,
		m.statusChecksPerRun,
		m.phaseTransitions,
		m.remoteCalls,
		m.remoteDuration,
		m.remoteErrors,
		m.errorsByClass,
		m.activeRuns,
	)

	return m, nil
}

// Run Metrics

// RecordRunStarted increments the counter for started runs.
func (m *Metrics) RecordRunStarted() {
	if m.runsStarted == nil {
		return
	}
	m.runsStarted.Inc()
	m.activeRuns.Inc()
}

// RecordRunCompleted records a completed run with its outcome, duration and
// poll count.
func (m *Metrics) RecordRunCompleted(outcome string, duration time.Duration, statusChecks int) {
	if m.runsCompleted == nil {
		return
	}
	m.runsCompleted.WithLabelValues(outcome).Inc()
	m.runDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	m.statusChecksPerRun.Observe(float64(statusChecks))
	m.activeRuns.Dec()
}

// Poll Metrics

// RecordStatusCheck increments the counter for remote status checks.
func (m *Metrics) RecordStatusCheck() {
	if m.statusChecks == nil {
		return
	}
	m.statusChecks.Inc()
}

// Phase Metrics

// RecordPhaseTransition records a run phase transition.
func (m *Metrics) RecordPhaseTransition(from, to string) {
	if m.phaseTransitions == nil {
		return
	}
	m.phaseTransitions.WithLabelValues(from, to).Inc()
}

// Remote Metrics

// RecordRemoteCall records a remote protocol call with its duration.
func (m *Metrics) RecordRemoteCall(operation string, duration time.Duration) {
	if m.remoteCalls == nil {
		return
	}
	m.remoteCalls.WithLabelValues(operation).Inc()
	m.remoteDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRemoteError records a remote protocol error.
func (m *Metrics) RecordRemoteError(operation string) {
	if m.remoteErrors == nil {
		return
	}
	m.remoteErrors.WithLabelValues(operation).Inc()
}

// Error Metrics

// RecordError records a run failure by error class.
func (m *Metrics) RecordError(errorClass string) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
}

// System Metrics

// SetActiveRuns sets the current number of active runs.
func (m *Metrics) SetActiveRuns(count float64) {
	if m.activeRuns == nil {
		return
	}
	m.activeRuns.Set(count)
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
