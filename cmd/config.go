package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration as YAML",
		Long:  "Print defaults merged with the config file, environment and flags. Database passwords are masked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			shown := *cfg
			shown.Database.DSN = cfg.Database.RedactedDSN()
			out, err := yaml.Marshal(shown)
			if err != nil {
				return fmt.Errorf("failed to render configuration: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	})
	return configCmd
}
