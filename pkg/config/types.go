package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/openlro/openlro/pkg/telemetry"
)

// Remote adapter modes.
const (
	RemoteModeSim  = "sim"
	RemoteModeHTTP = "http"
)

// Config is the root orchestrator configuration. It is assembled once by
// Load (defaults, then an optional file, then environment overrides) and
// treated as immutable afterwards.
type Config struct {
	// Orchestrator configures the run state machine.
	Orchestrator OrchestratorConfig `json:"orchestrator" yaml:"orchestrator"`

	// Remote selects and configures the remote operation adapter.
	Remote RemoteConfig `json:"remote" yaml:"remote"`

	// Sim configures the simulated remote used in sim mode.
	Sim SimConfig `json:"sim" yaml:"sim"`

	// History configures run history recording.
	History HistoryConfig `json:"history" yaml:"history"`

	// Policy configures the submission policy gate.
	Policy PolicyConfig `json:"policy" yaml:"policy"`

	// Telemetry configures logging, metrics, tracing and events.
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
}

// OrchestratorConfig configures the polling state machine.
type OrchestratorConfig struct {
	// PollIntervalSeconds is the fixed delay before every status check.
	PollIntervalSeconds int `json:"poll_interval_seconds" yaml:"poll_interval_seconds" validate:"gt=0"`

	// MaxRetries is the status check budget after the first. A run that
	// exhausts it resolves as timed out.
	MaxRetries int `json:"max_retries" yaml:"max_retries" validate:"min=0"`

	// RemoteTimeoutHintSeconds is an optional hint forwarded to the remote
	// at submission. Zero means no hint.
	RemoteTimeoutHintSeconds int `json:"remote_timeout_hint_seconds" yaml:"remote_timeout_hint_seconds" validate:"min=0"`
}

// PollInterval returns the poll cadence as a duration.
func (c OrchestratorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// RemoteTimeoutHint returns the submission timeout hint as a duration.
// Zero means the remote applies its own default.
func (c OrchestratorConfig) RemoteTimeoutHint() time.Duration {
	return time.Duration(c.RemoteTimeoutHintSeconds) * time.Second
}

// RemoteConfig selects the remote operation adapter.
type RemoteConfig struct {
	// Mode is the adapter kind (sim, http).
	Mode string `json:"mode" yaml:"mode" validate:"required,oneof=sim http"`

	// Endpoint is the base URL of the remote service in http mode.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" validate:"omitempty,url"`

	// RequestTimeoutSeconds bounds each HTTP request in http mode.
	RequestTimeoutSeconds int `json:"request_timeout_seconds" yaml:"request_timeout_seconds" validate:"min=0"`
}

// RequestTimeout returns the per-request HTTP timeout as a duration.
func (c RemoteConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// SimConfig configures the simulated remote.
type SimConfig struct {
	// DurationSeconds is how long a simulated operation reports RUNNING
	// before it succeeds.
	DurationSeconds int `json:"duration_seconds" yaml:"duration_seconds" validate:"min=0"`

	// Fail makes every simulated operation resolve as FAILED.
	Fail bool `json:"fail" yaml:"fail"`

	// Script is an optional Starlark scenario file driving the status
	// sequence instead of the clock.
	Script string `json:"script,omitempty" yaml:"script,omitempty"`
}

// Duration returns the simulated operation duration.
func (c SimConfig) Duration() time.Duration {
	return time.Duration(c.DurationSeconds) * time.Second
}

// HistoryConfig configures run history recording.
type HistoryConfig struct {
	// Enabled turns on terminal outcome recording.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Path is the SQLite database file.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// PolicyConfig configures the submission policy gate.
type PolicyConfig struct {
	// Enabled turns on policy evaluation before submission.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir is an optional directory of extra .rego policies loaded next to
	// the builtin policy.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// TelemetryConfig carries the file-expressible telemetry knobs. The full
// telemetry configuration is derived from it by Config.TelemetryConfig.
type TelemetryConfig struct {
	// LogLevel is the minimum log level (trace, debug, info, warn, error, fatal).
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,oneof=trace debug info warn error fatal"`

	// LogFormat is the log output format (console, json).
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty" validate:"omitempty,oneof=console json"`

	// MetricsListenAddress serves Prometheus metrics when set (e.g. ":9090").
	MetricsListenAddress string `json:"metrics_listen_address,omitempty" yaml:"metrics_listen_address,omitempty"`

	// TracingEnabled turns on OpenTelemetry tracing.
	TracingEnabled bool `json:"tracing_enabled" yaml:"tracing_enabled"`

	// TracingExporter selects the trace exporter (otlp, stdout, none).
	TracingExporter string `json:"tracing_exporter,omitempty" yaml:"tracing_exporter,omitempty" validate:"omitempty,oneof=otlp stdout none"`

	// TracingEndpoint is the OTLP collector endpoint.
	TracingEndpoint string `json:"tracing_endpoint,omitempty" yaml:"tracing_endpoint,omitempty"`

	// EventsEnabled turns on the lifecycle event publisher.
	EventsEnabled bool `json:"events_enabled" yaml:"events_enabled"`
}

// ValidationError is a configuration error with source location information.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the configuration path to the error (e.g. "orchestrator.max_retries").
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`

	// Severity is the error severity (error, warning, info).
	Severity string `json:"severity"`
}

func (e ValidationError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	default:
		return e.Message
	}
}

// Default returns the built-in configuration: sim remote, two second poll
// cadence, twenty retries, ten second simulated duration.
func Default() *Config {
	return &Config{
		Orchestrator: OrchestratorConfig{
			PollIntervalSeconds:      2,
			MaxRetries:               20,
			RemoteTimeoutHintSeconds: 0,
		},
		Remote: RemoteConfig{
			Mode:                  RemoteModeSim,
			RequestTimeoutSeconds: 30,
		},
		Sim: SimConfig{
			DurationSeconds: 10,
		},
		History: HistoryConfig{
			Enabled: false,
			Path:    defaultHistoryPath(),
		},
		Policy: PolicyConfig{
			Enabled: false,
		},
		Telemetry: TelemetryConfig{
			LogLevel:        "info",
			LogFormat:       "console",
			TracingExporter: "none",
		},
	}
}

// defaultHistoryPath places the run history database under the user home
// directory, falling back to the working directory.
func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "openlro-runs.db"
	}
	return filepath.Join(home, ".openlro", "runs.db")
}

var structValidator = validator.New()

// Validate checks the configuration. It combines struct tag validation with
// cross-field rules that tags cannot express.
func (c *Config) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Remote.Mode == RemoteModeHTTP && c.Remote.Endpoint == "" {
		return fmt.Errorf("remote.endpoint is required when remote.mode is %q", RemoteModeHTTP)
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path is required when history is enabled")
	}
	if c.Sim.Script != "" {
		if _, err := os.Stat(c.Sim.Script); err != nil {
			return fmt.Errorf("sim.script %s is not readable: %w", c.Sim.Script, err)
		}
	}

	return nil
}

// TelemetryConfig builds the full telemetry configuration from the
// file-expressible knobs, filling everything else with telemetry defaults.
func (c *Config) TelemetryConfig(version string) *telemetry.Config {
	tc := telemetry.DefaultConfig()
	if version != "" {
		tc.ServiceVersion = version
	}

	if c.Telemetry.LogLevel != "" {
		tc.Logging.Level = c.Telemetry.LogLevel
	}
	if c.Telemetry.LogFormat != "" {
		tc.Logging.Format = c.Telemetry.LogFormat
	}
	if c.Telemetry.MetricsListenAddress != "" {
		tc.Metrics.ListenAddress = c.Telemetry.MetricsListenAddress
	}

	tc.Tracing.Enabled = c.Telemetry.TracingEnabled
	if c.Telemetry.TracingExporter != "" {
		tc.Tracing.Exporter = c.Telemetry.TracingExporter
	}
	if c.Telemetry.TracingEndpoint != "" {
		tc.Tracing.Endpoint = c.Telemetry.TracingEndpoint
	}

	tc.Events.Enabled = c.Telemetry.EventsEnabled

	return tc
}
