// Package config loads and validates the orchestrator configuration.
//
// # Overview
//
// Configuration is assembled exactly once, before anything runs: built-in
// defaults first, then an optional file (YAML or CUE, chosen by extension),
// then environment overrides, then validation. A config that fails
// validation is rejected at load so a run never discovers a bad setting
// mid-flight.
//
// # Sections
//
//   - orchestrator: poll cadence, retry budget and the optional remote
//     timeout hint
//   - remote: adapter mode (sim or http), endpoint and request timeout
//   - sim: simulated operation duration, failure mode and scenario script
//   - history: run history recording (SQLite)
//   - policy: submission policy gate
//   - telemetry: logging, metrics, tracing and event knobs
//
// # Usage Example
//
//	cfg, err := config.Load("lro.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	interval := cfg.Orchestrator.PollInterval()
//	budget := cfg.Orchestrator.MaxRetries
//
// # File Formats
//
// YAML files decode over the defaults with gopkg.in/yaml.v3. CUE files are
// compiled, unified with the built-in #Config schema and decoded, so type
// and range errors carry file, line and column information:
//
//	orchestrator: {
//	    poll_interval_seconds: 2
//	    max_retries:           20
//	}
//
//	remote: mode: "sim"
//
//	sim: duration_seconds: 10
//
// # Environment Overrides
//
// Every file setting has an LRO_* environment variable that takes
// precedence over it (for example LRO_POLL_INTERVAL_SECONDS and
// LRO_SIM_DURATION_SECONDS). LOG_LEVEL is honored when LRO_LOG_LEVEL is
// unset.
//
// # Validation
//
// Struct tag validation (go-playground/validator) covers field-level
// constraints; Config.Validate adds the cross-field rules, such as
// requiring remote.endpoint in http mode. The SchemaRegistry holds the
// built-in CUE schemas and accepts custom registrations for callers that
// validate configuration fragments of their own.
//
// # Thread Safety
//
// A loaded Config is immutable by convention and safe to share. The
// SchemaRegistry is safe for concurrent use.
package config
