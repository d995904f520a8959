package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openlro/openlro/pkg/policy"
)

func newCheckCommand() *cobra.Command {
	var (
		payloadFile string
		labels      []string
		environment string
		maxRetries  int
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "check [payload]",
		Short: "Evaluate submission policies without submitting",
		Long: `Evaluate a payload against the submission policies and report the
verdict without contacting any remote.

The builtin policies plus any policies from the configured policy
directory are evaluated, regardless of whether the policy gate is
enabled for submit. Policies see the payload, the labels, the retry
budget override, and an evaluation context whose operation is "check".`,
		Example: `  # Check a query against the builtin policies
  lro check "DROP TABLE users"

  # Check with the context a production submission would carry
  lro check --environment production --label owner=data-eng \
    "INSERT INTO audit SELECT * FROM staging"

  # Check how a policy treats a dry-run submission
  lro check --environment production --dry-run "UPDATE orders SET state = 'void'"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
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

			engine, err := buildPolicyEngine(ctx, cfg)
			if err != nil {
				return err
			}

			input := &policy.PolicyInput{
				Payload: payload,
				Labels:  labelMap,
				Context: &policy.PolicyContext{
					User:        os.Getenv("USER"),
					Environment: environment,
					Timestamp:   time.Now(),
					Operation:   "check",
					DryRun:      dryRun,
				},
			}
			if cmd.Flags().Changed("max-retries") {
				input.MaxRetries = &maxRetries
			}

			result, err := engine.EvaluateSubmission(ctx, input)
			if err != nil {
				return err
			}

			if err := printPolicyResult(result); err != nil {
				return err
			}
			if !result.Allowed {
				return fmt.Errorf("submission would be denied (%d violations)", len(result.Violations))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&payloadFile, "file", "f", "", "read the payload from a file (- for stdin)")
	cmd.Flags().StringSliceVarP(&labels, "label", "l", nil, "run labels in key=value form")
	cmd.Flags().StringVar(&environment, "environment", "development", "environment name seen by policies")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "retry budget override seen by policies")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "evaluate as a dry-run submission")

	return cmd
}

// printPolicyResult writes a policy verdict to stdout as text or JSON.
func printPolicyResult(result *policy.PolicyResult) error {
	if jsonOutput {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if result.Allowed {
		fmt.Println("Submission allowed")
	} else {
		fmt.Println("Submission denied")
	}
	fmt.Printf("Policies evaluated: %d in %s\n",
		len(result.EvaluatedPolicies), result.Duration.Round(time.Millisecond))

	if len(result.Violations) > 0 {
		fmt.Println("\nViolations:")
		for _, v := range result.Violations {
			fmt.Printf("  [%s] %s: %s\n", v.Severity, v.Policy, v.Message)
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range result.Warnings {
			fmt.Printf("  %s\n", w)
		}
	}
	return nil
}
