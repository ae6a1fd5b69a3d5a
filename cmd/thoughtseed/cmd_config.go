package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect thoughtseed configuration",
		Long: `View and check thoughtseed configuration settings.

Configuration is read from ~/.thoughtseed/config.yaml, or from --config,
and then from THOUGHTSEED_* environment variables.

Examples:
  thoughtseed config show                   # Show effective settings as YAML
  thoughtseed config show --json            # Show effective settings as JSON
  thoughtseed config validate --config x.yaml`,
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigValidateCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(cmd.OutOrStdout(), cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode YAML: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the configuration loads and is valid",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadSettings(cmd)
			if err != nil {
				if jsonOut {
					printJSON(cmd.OutOrStdout(), map[string]any{"valid": false, "error": err.Error()})
				}
				return err
			}

			if jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"valid":    true,
					"features": cfg.Features.Names(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (%d features, %s backend)\n",
				cfg.Features.Len(), cfg.Persistence.Backend)
			return nil
		},
	}
}
