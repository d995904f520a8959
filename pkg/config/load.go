package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables overriding the file configuration.
const (
	EnvPollIntervalSeconds      = "LRO_POLL_INTERVAL_SECONDS"
	EnvMaxRetries               = "LRO_MAX_RETRIES"
	EnvRemoteTimeoutHintSeconds = "LRO_REMOTE_TIMEOUT_HINT_SECONDS"
	EnvRemoteMode               = "LRO_REMOTE_MODE"
	EnvRemoteEndpoint           = "LRO_REMOTE_ENDPOINT"
	EnvRequestTimeoutSeconds    = "LRO_REMOTE_REQUEST_TIMEOUT_SECONDS"
	EnvSimDurationSeconds       = "LRO_SIM_DURATION_SECONDS"
	EnvSimFail                  = "LRO_SIM_FAIL"
	EnvSimScript                = "LRO_SIM_SCRIPT"
	EnvHistoryEnabled           = "LRO_HISTORY_ENABLED"
	EnvHistoryPath              = "LRO_HISTORY_PATH"
	EnvPolicyEnabled            = "LRO_POLICY_ENABLED"
	EnvPolicyDir                = "LRO_POLICY_DIR"
	EnvLogLevel                 = "LRO_LOG_LEVEL"

	// EnvLogLevelCompat is honored when EnvLogLevel is unset.
	EnvLogLevelCompat = "LOG_LEVEL"
)

// Load assembles the configuration: defaults, then the optional file (YAML
// or CUE by extension), then environment overrides, then validation. An
// empty path skips the file step.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile decodes a configuration file over cfg, dispatching on the file
// extension.
func loadFile(cfg *Config, path string) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return nil
	case ".cue":
		return NewCUEParser().ParseFile(path, cfg)
	default:
		return fmt.Errorf("unsupported config format %q (expected .yaml, .yml or .cue)", ext)
	}
}

// applyEnv overrides cfg fields from the environment.
func applyEnv(cfg *Config) error {
	if err := envInt(EnvPollIntervalSeconds, &cfg.Orchestrator.PollIntervalSeconds); err != nil {
		return err
	}
	if err := envInt(EnvMaxRetries, &cfg.Orchestrator.MaxRetries); err != nil {
		return err
	}
	if err := envInt(EnvRemoteTimeoutHintSeconds, &cfg.Orchestrator.RemoteTimeoutHintSeconds); err != nil {
		return err
	}

	envString(EnvRemoteMode, &cfg.Remote.Mode)
	envString(EnvRemoteEndpoint, &cfg.Remote.Endpoint)
	if err := envInt(EnvRequestTimeoutSeconds, &cfg.Remote.RequestTimeoutSeconds); err != nil {
		return err
	}

	if err := envInt(EnvSimDurationSeconds, &cfg.Sim.DurationSeconds); err != nil {
		return err
	}
	if err := envBool(EnvSimFail, &cfg.Sim.Fail); err != nil {
		return err
	}
	envString(EnvSimScript, &cfg.Sim.Script)

	if err := envBool(EnvHistoryEnabled, &cfg.History.Enabled); err != nil {
		return err
	}
	envString(EnvHistoryPath, &cfg.History.Path)

	if err := envBool(EnvPolicyEnabled, &cfg.Policy.Enabled); err != nil {
		return err
	}
	envString(EnvPolicyDir, &cfg.Policy.Dir)

	envString(EnvLogLevel, &cfg.Telemetry.LogLevel)
	if os.Getenv(EnvLogLevel) == "" {
		envString(EnvLogLevelCompat, &cfg.Telemetry.LogLevel)
	}
	// LOG_LEVEL is conventionally uppercase.
	cfg.Telemetry.LogLevel = strings.ToLower(cfg.Telemetry.LogLevel)

	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = b
	return nil
}
