package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openlro/openlro/pkg/config"
	"github.com/openlro/openlro/pkg/lro"
	"github.com/openlro/openlro/pkg/policy"
	"github.com/openlro/openlro/pkg/stores"
	"github.com/openlro/openlro/pkg/telemetry"
	"github.com/openlro/openlro/pkg/transports/httpremote"
	"github.com/openlro/openlro/pkg/transports/sim"
)

func newSubmitCommand() *cobra.Command {
	var (
		payloadFile  string
		pollInterval int
		maxRetries   int
		labels       []string
		environment  string
		endpoint     string
		simDuration  int
		simFail      bool
	)

	cmd := &cobra.Command{
		Use:   "submit [payload]",
		Short: "Submit an operation and drive it to completion",
		Long: `Submit a payload to the configured remote and poll it to a terminal
outcome.

The run follows the submit-poll-fetch protocol: the payload is started on
the remote, the issued handle is polled on a fixed cadence until the
operation reports a terminal status, and the result is fetched on success.
A run that exhausts its retry budget resolves as timed out; interrupting
the command resolves the run as cancelled.

The payload is read from the first argument, from --file, or from stdin
when neither is given.`,
		Example: `  # Submit against the built-in simulated remote
  lro submit "SELECT region, sum(amount) FROM orders GROUP BY region"

  # Submit a payload file to an HTTP remote
  lro submit --file query.sql --endpoint http://localhost:8080

  # Tight cadence with a small retry budget
  lro submit --poll-interval 1 --max-retries 5 "SELECT 1"

  # Attach labels for policy evaluation and run history
  lro submit --label owner=data-eng --label approved=true \
    --environment production "SELECT count(*) FROM events"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// Flag overrides on top of file and environment
			if cmd.Flags().Changed("poll-interval") {
				cfg.Orchestrator.PollIntervalSeconds = pollInterval
			}
			if cmd.Flags().Changed("max-retries") {
				cfg.Orchestrator.MaxRetries = maxRetries
			}
			if endpoint != "" {
				cfg.Remote.Mode = config.RemoteModeHTTP
				cfg.Remote.Endpoint = endpoint
			}
			if cmd.Flags().Changed("sim-duration") {
				cfg.Sim.DurationSeconds = simDuration
			}
			if cmd.Flags().Changed("sim-fail") {
				cfg.Sim.Fail = simFail
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			payload, err := readPayload(args, payloadFile)
			if err != nil {
				return err
			}
			labelMap, err := parseLabels(labels)
			if err != nil {
				return err
			}

			return runSubmit(ctx, cfg, payload, labelMap, environment)
		},
	}

	cmd.Flags().StringVarP(&payloadFile, "file", "f", "", "read the payload from a file (- for stdin)")
	cmd.Flags().IntVar(&pollInterval, "poll-interval", 0, "seconds between status checks")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "status check budget after the first")
	cmd.Flags().StringSliceVarP(&labels, "label", "l", nil, "run labels in key=value form")
	cmd.Flags().StringVar(&environment, "environment", "development", "environment name seen by policies")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "HTTP remote endpoint (switches remote mode to http)")
	cmd.Flags().IntVar(&simDuration, "sim-duration", 0, "simulated operation duration in seconds")
	cmd.Flags().BoolVar(&simFail, "sim-fail", false, "make the simulated operation fail")

	return cmd
}

// runSubmit wires the configured remote, observers, policy gate and history
// recorder together and drives one run to completion.
func runSubmit(ctx context.Context, cfg *config.Config, payload string, labels map[string]string, environment string) error {
	tel, err := telemetry.NewTelemetry(cfg.TelemetryConfig(buildVersion))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Flush(shutdownCtx)
		_ = tel.Shutdown(shutdownCtx)
	}()

	if cfg.Telemetry.MetricsListenAddress != "" {
		if err := tel.StartMetricsServer(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	remote, err := buildRemote(cfg)
	if err != nil {
		return err
	}
	remote = telemetry.NewInstrumentedRemote(remote, tel)

	if cfg.Policy.Enabled {
		engine, err := buildPolicyEngine(ctx, cfg)
		if err != nil {
			return err
		}
		remote = policy.NewGatedRemote(remote, engine, policy.GateConfig{
			Labels: labels,
			Context: &policy.PolicyContext{
				User:        os.Getenv("USER"),
				Environment: environment,
				Timestamp:   time.Now(),
				Operation:   "submit",
			},
		})
	}

	observer := tel.Observers()

	var rec *stores.Recorder
	if cfg.History.Enabled {
		store, err := openHistory(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		rec = stores.NewRecorder(store, cfg.Orchestrator.MaxRetries)
		observer = lro.MultiObserver(observer, rec)
	}

	runner, err := lro.NewRunner(remote, lro.Options{
		PollInterval: cfg.Orchestrator.PollInterval(),
		MaxRetries:   cfg.Orchestrator.MaxRetries,
		Observer:     observer,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("mode", cfg.Remote.Mode).
		Int("poll_interval_seconds", cfg.Orchestrator.PollIntervalSeconds).
		Int("max_retries", cfg.Orchestrator.MaxRetries).
		Msg("Submitting operation")

	req := lro.OperationRequest{Payload: payload, Labels: labels}
	out, err := runner.Execute(ctx, req)
	if err != nil {
		return err
	}

	if rec != nil {
		if err := rec.RecordOutcome(ctx, req, out); err != nil {
			log.Warn().Err(err).Str("run_id", out.RunID).Msg("Failed to record run history")
		}
	}

	if err := printOutcome(out); err != nil {
		return err
	}
	if out.Kind != lro.OutcomeSuccess {
		return fmt.Errorf("run %s resolved as %s", out.RunID, out.Kind)
	}
	return nil
}

// buildRemote constructs the configured remote adapter.
func buildRemote(cfg *config.Config) (lro.Remote, error) {
	switch cfg.Remote.Mode {
	case config.RemoteModeSim:
		simCfg := sim.Config{
			Duration: cfg.Sim.Duration(),
			Fail:     cfg.Sim.Fail,
		}
		if cfg.Sim.Script != "" {
			script, err := sim.LoadScript(cfg.Sim.Script)
			if err != nil {
				return nil, fmt.Errorf("failed to load sim script: %w", err)
			}
			simCfg.Script = script
		}
		return sim.New(simCfg), nil

	case config.RemoteModeHTTP:
		return httpremote.NewClient(&httpremote.ClientConfig{
			BaseURL: cfg.Remote.Endpoint,
			Timeout: cfg.Remote.RequestTimeout(),
		})

	default:
		return nil, fmt.Errorf("unknown remote mode %q", cfg.Remote.Mode)
	}
}

// buildPolicyEngine creates the policy engine with the builtin policies and
// any extra policies from the configured directory.
func buildPolicyEngine(ctx context.Context, cfg *config.Config) (*policy.Engine, error) {
	engine, err := policy.NewEngine(log.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy engine: %w", err)
	}
	if cfg.Policy.Dir != "" {
		if err := engine.LoadPolicies(ctx, []string{cfg.Policy.Dir}); err != nil {
			return nil, err
		}
	}
	return engine, nil
}

// openHistory opens the run history store, creating and migrating the
// database when needed.
func openHistory(ctx context.Context, cfg *config.Config) (*stores.SQLiteStore, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: cfg.History.Path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// readPayload resolves the operation payload from the argument, the payload
// file, or stdin, in that order.
func readPayload(args []string, payloadFile string) (string, error) {
	if len(args) > 0 && payloadFile != "" {
		return "", fmt.Errorf("payload argument and --file are mutually exclusive")
	}
	if len(args) > 0 {
		return args[0], nil
	}

	var (
		data []byte
		err  error
	)
	if payloadFile == "" || payloadFile == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(payloadFile)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read payload: %w", err)
	}

	payload := strings.TrimSpace(string(data))
	if payload == "" {
		return "", fmt.Errorf("payload is empty")
	}
	return payload, nil
}

// parseLabels converts key=value flag values into a label map.
func parseLabels(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	labels := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid label %q (expected key=value)", pair)
		}
		labels[key] = value
	}
	return labels, nil
}

// printOutcome writes the terminal outcome to stdout as text or JSON.
func printOutcome(out *lro.Outcome) error {
	if jsonOutput {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Run:      %s\n", out.RunID)
	fmt.Printf("Outcome:  %s\n", out.Kind)
	if out.Handle != "" {
		fmt.Printf("Handle:   %s\n", out.Handle)
	}
	fmt.Printf("Retries:  %d\n", out.RetryCount)
	fmt.Printf("Duration: %s\n", out.Duration.Round(time.Millisecond))
	if out.Failure != nil {
		fmt.Printf("Error:    %s\n", out.Failure.Error())
	}
	if len(out.Result) > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, out.Result, "", "  "); err != nil {
			fmt.Printf("Result:   %s\n", out.Result)
		} else {
			fmt.Printf("Result:\n%s\n", buf.String())
		}
	}
	return nil
}
