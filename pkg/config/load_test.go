package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Orchestrator.PollIntervalSeconds != 2 {
		t.Errorf("expected poll interval 2, got %d", cfg.Orchestrator.PollIntervalSeconds)
	}
	if cfg.Orchestrator.MaxRetries != 20 {
		t.Errorf("expected max retries 20, got %d", cfg.Orchestrator.MaxRetries)
	}
	if cfg.Remote.Mode != RemoteModeSim {
		t.Errorf("expected sim mode, got %q", cfg.Remote.Mode)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeConfigFile(t, "lro.yaml", `
orchestrator:
  poll_interval_seconds: 1
  max_retries: 5
remote:
  mode: http
  endpoint: http://localhost:8080
  request_timeout_seconds: 10
telemetry:
  log_level: debug
  log_format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Orchestrator.PollIntervalSeconds != 1 {
		t.Errorf("expected poll interval 1, got %d", cfg.Orchestrator.PollIntervalSeconds)
	}
	if cfg.Orchestrator.MaxRetries != 5 {
		t.Errorf("expected max retries 5, got %d", cfg.Orchestrator.MaxRetries)
	}
	if cfg.Remote.Mode != RemoteModeHTTP {
		t.Errorf("expected http mode, got %q", cfg.Remote.Mode)
	}
	if cfg.Remote.Endpoint != "http://localhost:8080" {
		t.Errorf("expected endpoint http://localhost:8080, got %q", cfg.Remote.Endpoint)
	}
	if cfg.Telemetry.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.Telemetry.LogLevel)
	}

	// Untouched sections keep their defaults.
	if cfg.Sim.DurationSeconds != 10 {
		t.Errorf("expected default sim duration 10, got %d", cfg.Sim.DurationSeconds)
	}
}

func TestLoad_CUEFile(t *testing.T) {
	path := writeConfigFile(t, "lro.cue", `
orchestrator: {
	poll_interval_seconds: 3
	max_retries:           7
}

sim: {
	duration_seconds: 0
	fail:             true
}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Orchestrator.PollIntervalSeconds != 3 {
		t.Errorf("expected poll interval 3, got %d", cfg.Orchestrator.PollIntervalSeconds)
	}
	if cfg.Orchestrator.MaxRetries != 7 {
		t.Errorf("expected max retries 7, got %d", cfg.Orchestrator.MaxRetries)
	}
	if cfg.Sim.DurationSeconds != 0 {
		t.Errorf("expected sim duration 0, got %d", cfg.Sim.DurationSeconds)
	}
	if !cfg.Sim.Fail {
		t.Error("expected sim failure mode enabled")
	}
	if cfg.Remote.Mode != RemoteModeSim {
		t.Errorf("expected default sim mode, got %q", cfg.Remote.Mode)
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := writeConfigFile(t, "lro.toml", "poll_interval_seconds = 2\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unsupported format, got none")
	}
	if !strings.Contains(err.Error(), "unsupported config format") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file, got none")
	}
}

func TestLoad_InvalidFileRejected(t *testing.T) {
	path := writeConfigFile(t, "lro.yaml", `
orchestrator:
  poll_interval_seconds: 0
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error, got none")
	}
	if !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("expected invalid configuration error, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfigFile(t, "lro.yaml", `
orchestrator:
  poll_interval_seconds: 5
  max_retries: 3
`)

	t.Setenv(EnvPollIntervalSeconds, "1")
	t.Setenv(EnvMaxRetries, "0")
	t.Setenv(EnvSimDurationSeconds, "2")
	t.Setenv(EnvSimFail, "true")
	t.Setenv(EnvPolicyEnabled, "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Orchestrator.PollIntervalSeconds != 1 {
		t.Errorf("expected env poll interval 1, got %d", cfg.Orchestrator.PollIntervalSeconds)
	}
	if cfg.Orchestrator.MaxRetries != 0 {
		t.Errorf("expected env max retries 0, got %d", cfg.Orchestrator.MaxRetries)
	}
	if cfg.Sim.DurationSeconds != 2 {
		t.Errorf("expected env sim duration 2, got %d", cfg.Sim.DurationSeconds)
	}
	if !cfg.Sim.Fail {
		t.Error("expected env sim failure mode enabled")
	}
	if !cfg.Policy.Enabled {
		t.Error("expected env policy enabled")
	}
}

func TestLoad_EnvMalformed(t *testing.T) {
	t.Setenv(EnvMaxRetries, "twenty")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error for malformed env value, got none")
	}
	if !strings.Contains(err.Error(), EnvMaxRetries) {
		t.Errorf("expected error naming %s, got %v", EnvMaxRetries, err)
	}
}

func TestLoad_LogLevelCompat(t *testing.T) {
	t.Setenv(EnvLogLevelCompat, "DEBUG")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telemetry.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.Telemetry.LogLevel)
	}
}

func TestLoad_LogLevelPrecedence(t *testing.T) {
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvLogLevelCompat, "ERROR")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telemetry.LogLevel != "warn" {
		t.Errorf("expected log level warn, got %q", cfg.Telemetry.LogLevel)
	}
}
