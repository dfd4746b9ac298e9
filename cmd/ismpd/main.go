package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	FlagConfig        = "config"
	DefaultConfigPath = "ismpd.toml"
)

func main() {
	if err := RootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Something went wrong!")
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}

func RootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ismpd",
		Short: "ismpd bootstraps and drives a go-ismp handler core",
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage node bootstrap configuration",
	}
	configCmd.AddCommand(ConfigInitCmd())
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(ServeCmd())

	return rootCmd
}
