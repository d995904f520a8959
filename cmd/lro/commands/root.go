package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openlro/openlro/pkg/config"
)

var (
	// Global flags
	configPath string
	logLevel   string
	jsonOutput bool

	// buildVersion is the release version injected from main, forwarded into
	// the telemetry service metadata.
	buildVersion string
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	buildVersion = version
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lro",
		Short: "OpenLRO - Long-Running Operation Orchestrator",
		Long: `OpenLRO drives asynchronous long-running operations to completion:
it submits a payload to a remote service, polls the issued handle on a fixed
cadence until the operation reaches a terminal status, and fetches the result.

Features:
  - Submit-poll-fetch state machine with a bounded retry budget
  - Simulated and HTTP remote adapters
  - Policy gating of submissions via OPA/rego
  - SQLite run history with full transition logs
  - Structured logging, Prometheus metrics and OpenTelemetry tracing`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (.yaml or .cue)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newSubmitCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newPoliciesCommand())

	return rootCmd
}

// loadConfig assembles the effective configuration for a command run,
// applying the persistent --log-level flag on top of file and environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Telemetry.LogLevel = logLevel
		if lvl, err := zerolog.ParseLevel(logLevel); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
	}

	return cfg, nil
}
