package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openlro/openlro/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit       int
		offset      int
		outcome     string
		transitions bool
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Inspect recorded run history",
		Long: `List recorded runs or show one run in detail.

Run history is recorded by submit when history is enabled in the
configuration. Without a run ID the most recent runs are listed; with a
run ID the full record is shown, optionally including every phase
transition the run went through.`,
		Example: `  # List the most recent runs
  lro history

  # Page through older runs
  lro history --limit 10 --offset 20

  # Only failed runs
  lro history --outcome failed

  # Show one run with its transition log
  lro history 01J3ZK8F0Q9XN4T1V2W3X4Y5Z6 --transitions`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.History.Path == "" {
				return fmt.Errorf("history.path is not configured")
			}

			store, err := openHistory(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				return showRun(ctx, store, args[0], transitions)
			}
			return listRuns(ctx, store, outcome, limit, offset)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of runs to skip")
	cmd.Flags().StringVar(&outcome, "outcome", "", "filter by outcome (success, failed, timed_out, cancelled)")
	cmd.Flags().BoolVar(&transitions, "transitions", false, "include phase transitions when showing a run")

	return cmd
}

// listRuns prints recorded runs, newest first.
func listRuns(ctx context.Context, store *stores.SQLiteStore, outcome string, limit, offset int) error {
	var (
		runs []*stores.RunRecord
		err  error
	)
	if outcome != "" {
		runs, err = store.ListRunsByOutcome(ctx, outcome, limit, offset)
	} else {
		runs, err = store.ListRuns(ctx, limit, offset)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		data, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	total, err := store.CountRuns(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%-26s  %-9s  %-9s  %-7s  %-10s  %s\n",
		"RUN", "OUTCOME", "STATUS", "RETRIES", "DURATION", "STARTED")
	for _, run := range runs {
		duration := time.Duration(run.DurationMS) * time.Millisecond
		fmt.Printf("%-26s  %-9s  %-9s  %-7d  %-10s  %s\n",
			run.ID, run.Outcome, run.FinalStatus, run.RetryCount,
			duration.String(), run.StartedAt.Local().Format(time.RFC3339))
	}
	fmt.Printf("\n%d of %d runs\n", len(runs), total)
	return nil
}

// showRun prints one recorded run in detail.
func showRun(ctx context.Context, store *stores.SQLiteStore, id string, withTransitions bool) error {
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}

	var trs []*stores.TransitionRecord
	if withTransitions {
		trs, err = store.GetTransitions(ctx, id)
		if err != nil {
			return err
		}
	}

	if jsonOutput {
		record := struct {
			Run         *stores.RunRecord          `json:"run"`
			Transitions []*stores.TransitionRecord `json:"transitions,omitempty"`
		}{Run: run, Transitions: trs}
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Run:          %s\n", run.ID)
	fmt.Printf("Outcome:      %s\n", run.Outcome)
	if run.Handle != "" {
		fmt.Printf("Handle:       %s\n", run.Handle)
	}
	if run.FinalStatus != "" {
		fmt.Printf("Final status: %s\n", run.FinalStatus)
	}
	fmt.Printf("Retries:      %d / %d\n", run.RetryCount, run.MaxRetries)
	fmt.Printf("Started:      %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Printf("Completed:    %s\n", run.CompletedAt.Local().Format(time.RFC3339))
	fmt.Printf("Duration:     %s\n", (time.Duration(run.DurationMS) * time.Millisecond).String())
	fmt.Printf("Payload:      %s\n", run.Payload)
	if run.Error != nil {
		fmt.Printf("Error:        %s\n", *run.Error)
	}
	if run.Result != nil {
		fmt.Printf("Result:       %s\n", *run.Result)
	}

	if withTransitions {
		fmt.Println("\nTransitions:")
		for _, tr := range trs {
			line := fmt.Sprintf("  %s  %-10s -> %-10s",
				tr.OccurredAt.Local().Format("15:04:05.000"), tr.FromPhase, tr.ToPhase)
			if tr.Status != "" {
				line += fmt.Sprintf("  status=%s retry=%d", tr.Status, tr.RetryCount)
			}
			if tr.Error != nil {
				line += fmt.Sprintf("  error=%s", *tr.Error)
			}
			fmt.Println(line)
		}
	}
	return nil
}
