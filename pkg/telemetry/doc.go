// Package telemetry provides comprehensive observability instrumentation for the orchestrator.
//
// The telemetry package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus), and event publishing into a unified system
// for monitoring and debugging long-running operation runs.
//
// # Architecture
//
// The telemetry system is built on four pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces with multiple exporters
//  3. Metrics Collection - Prometheus metrics for operational insights
//  4. Event Publishing - Async event system for audit and notifications
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "openlro"
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	// Start metrics server
//	if err := tel.StartMetricsServer(); err != nil {
//	    log.Fatal(err)
//	}
//
// Add telemetry to context:
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context propagation:
//
//	logger := tel.Logger.NewComponentLogger("runner")
//	logger = logger.WithRunID("run-123").WithHandle("op-456")
//	logger.Info("Submitting operation")
//	logger.WithError(err).Error("Submission failed")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Distributed Tracing
//
// Tracing provides visibility into request flow and performance:
//
//	ctx, span := tel.Tracer.Start(ctx, "operation.name")
//	defer span.End()
//
//	// Add attributes
//	span.SetAttributes(
//	    attribute.String("run.id", runID),
//	    attribute.String("phase", "POLLING"),
//	)
//
//	// Record errors
//	if err != nil {
//	    telemetry.RecordError(span, err)
//	}
//
// Supported exporters: OTLP (production), Stdout (development), None (testing)
//
// # Metrics
//
// Prometheus metrics track run behavior and remote performance:
//
//	// Record run lifecycle
//	tel.Metrics.RecordRunStarted()
//	tel.Metrics.RecordRunCompleted("success", duration, statusChecks)
//
//	// Record remote protocol calls
//	tel.Metrics.RecordRemoteCall("get_status", duration)
//	tel.Metrics.RecordRemoteError("get_status")
//
//	// Record failures
//	tel.Metrics.RecordError("remote_failure")
//
// Metrics are exposed via HTTP at /metrics (default: :9090/metrics)
//
// # Event Publishing
//
// The event system provides async publishing with buffering and filtering:
//
//	// Publish events
//	tel.Events.PublishRunSubmitted(runID, handle)
//	tel.Events.PublishRunCompleted(runID, "success", retryCount)
//
//	// Subscribe to events
//	tel.Events.Subscribe(func(event telemetry.Event) {
//	    fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
//	}, telemetry.FilterByLevel("warning"))
//
// Event filters: FilterByLevel, FilterByType, FilterByRunID, FilterByHandle
//
// # Run Observers
//
// The transition observers connect a Runner to telemetry without the runner
// knowing about any of it:
//
//	runner, err := lro.NewRunner(remote, lro.Options{
//	    PollInterval: 2 * time.Second,
//	    MaxRetries:   20,
//	    Observer:     tel.Observers(),
//	})
//
// LogObserver, MetricsObserver and EventObserver can also be composed
// individually through lro.MultiObserver.
//
// # Remote Instrumentation
//
// Wrap any remote to trace and measure every protocol call:
//
//	remote = telemetry.NewInstrumentedRemote(remote, tel)
//
// # Configuration
//
// The package provides pre-configured setups for different environments:
//
//	// Development (verbose logging, stdout traces, full sampling)
//	cfg := telemetry.DevelopmentConfig()
//
//	// Production (JSON logs, OTLP traces, 10% sampling)
//	cfg := telemetry.ProductionConfig()
//
// # Graceful Shutdown
//
// Always shut down telemetry gracefully to flush pending data:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	if err := tel.Shutdown(ctx); err != nil {
//	    log.Printf("Telemetry shutdown error: %v", err)
//	}
//
// # Common Metrics
//
// Key metrics exposed:
//
//   - openlro_runs_started_total
//   - openlro_runs_completed_total{outcome}
//   - openlro_run_duration_seconds{outcome}
//   - openlro_status_checks_total
//   - openlro_status_checks_per_run
//   - openlro_phase_transitions_total{from,to}
//   - openlro_remote_calls_total{operation}
//   - openlro_remote_call_duration_seconds{operation}
//   - openlro_remote_errors_total{operation}
//   - openlro_errors_by_class_total{class}
//   - openlro_active_runs
//
// # Security Considerations
//
//   - Never log sensitive data (credentials, keys, tokens)
//   - Use secure connections (TLS) for trace exporters in production
//   - Limit metrics endpoint access via network policies
//   - Consider event data before adding to audit logs
package telemetry
