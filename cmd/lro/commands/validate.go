package commands

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openlro/openlro/pkg/config"
)

func newValidateCommand() *cobra.Command {
	var printResolved bool

	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a configuration file",
		Long: `Validate an orchestrator configuration file.

The file is loaded exactly like submit loads it: defaults first, the file
on top (YAML or CUE by extension), environment overrides last, then
struct and cross-field validation. CUE files are reported with source
positions when they fail to parse.`,
		Example: `  # Validate the file given via --config
  lro --config openlro.yaml validate

  # Validate a specific file
  lro validate ./configs/production.cue

  # Print the fully resolved configuration
  lro validate --print ./configs/production.cue`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if len(args) > 0 {
				path = args[0]
			}

			log.Info().Str("path", path).Msg("Validating configuration")

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			if printResolved {
				return printConfig(cfg)
			}

			if path == "" {
				fmt.Println("Defaults and environment overrides are valid")
			} else {
				fmt.Printf("%s is valid\n", path)
			}
			fmt.Printf("  remote:   %s\n", describeRemote(cfg))
			fmt.Printf("  cadence:  poll every %s, budget %d retries\n",
				cfg.Orchestrator.PollInterval(), cfg.Orchestrator.MaxRetries)
			fmt.Printf("  history:  %s\n", describeHistory(cfg))
			fmt.Printf("  policy:   %s\n", describePolicy(cfg))
			return nil
		},
	}

	cmd.Flags().BoolVar(&printResolved, "print", false, "print the fully resolved configuration")

	return cmd
}

// printConfig dumps the resolved configuration as YAML or JSON.
func printConfig(cfg *config.Config) error {
	if jsonOutput {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

func describeRemote(cfg *config.Config) string {
	switch cfg.Remote.Mode {
	case config.RemoteModeHTTP:
		return fmt.Sprintf("http (%s)", cfg.Remote.Endpoint)
	default:
		switch {
		case cfg.Sim.Script != "":
			return fmt.Sprintf("sim (script %s)", cfg.Sim.Script)
		case cfg.Sim.Fail:
			return fmt.Sprintf("sim (failing, duration %s)", cfg.Sim.Duration())
		default:
			return fmt.Sprintf("sim (duration %s)", cfg.Sim.Duration())
		}
	}
}

func describeHistory(cfg *config.Config) string {
	if !cfg.History.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("enabled (%s)", cfg.History.Path)
}

func describePolicy(cfg *config.Config) string {
	if !cfg.Policy.Enabled {
		return "disabled"
	}
	if cfg.Policy.Dir != "" {
		return fmt.Sprintf("enabled (builtin + %s)", cfg.Policy.Dir)
	}
	return "enabled (builtin)"
}
