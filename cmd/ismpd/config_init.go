package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polytope-labs/go-ismp/config"
)

// ConfigInitCmd writes a default ismpd.toml to disk, mirroring the
// teacher's attestor config.WriteTomlConfig bootstrap flow.
func ConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default node configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString(FlagConfig)
			if err != nil {
				return err
			}
			cfg := config.DefaultConfig()
			if err := cfg.WriteTomlConfig(path); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			fmt.Printf("wrote default configuration to %s\n", path)
			return nil
		},
	}
	cmd.Flags().String(FlagConfig, DefaultConfigPath, "path to write the config file to")
	return cmd
}
