package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openlro/openlro/pkg/policy"
)

func newPoliciesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policies [name]",
		Short: "List or show submission policies",
		Long: `List the submission policies the gate evaluates, or show one policy
in full, including its rego source.

The set is the builtin policies plus any policies loaded from the
configured policy directory.`,
		Example: `  # List all policies
  lro policies

  # Show one policy with its rego source
  lro policies destructive-statements`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			engine, err := buildPolicyEngine(ctx, cfg)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				pol, err := engine.GetPolicy(args[0])
				if err != nil {
					return err
				}
				return printPolicy(pol)
			}
			return printPolicyList(engine.ListPolicies())
		},
	}

	return cmd
}

func printPolicy(pol *policy.Policy) error {
	if jsonOutput {
		data, err := json.MarshalIndent(pol, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Policy:      %s\n", pol.Name)
	fmt.Printf("Severity:    %s\n", pol.Severity)
	fmt.Printf("Enabled:     %v\n", pol.Enabled)
	if pol.Description != "" {
		fmt.Printf("Description: %s\n", pol.Description)
	}
	if len(pol.Tags) > 0 {
		fmt.Printf("Tags:        %s\n", strings.Join(pol.Tags, ", "))
	}
	fmt.Printf("\n%s\n", strings.TrimSpace(pol.Rego))
	return nil
}

func printPolicyList(policies []policy.Policy) error {
	sort.Slice(policies, func(i, j int) bool {
		return policies[i].Name < policies[j].Name
	})

	if jsonOutput {
		data, err := json.MarshalIndent(policies, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%-28s  %-8s  %-7s  %s\n", "NAME", "SEVERITY", "ENABLED", "DESCRIPTION")
	for _, pol := range policies {
		fmt.Printf("%-28s  %-8s  %-7v  %s\n",
			pol.Name, pol.Severity, pol.Enabled, pol.Description)
	}
	return nil
}
