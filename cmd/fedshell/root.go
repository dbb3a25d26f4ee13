package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fedshell",
	Short: "Server-side micro-frontend host with federated remotes",
	Long: `fedshell composes a banking page from independently deployed remotes.

The host loads each remote through its manifest, falls back to an accessor
the remote registered, and finally to a static notice. Remotes announce
completed transfers over a signed event bridge and the host keeps the
balance shown in its header.

Quick start:
  fedshell remote   # Start the transfers remote (port 4201)
  fedshell serve    # Start the host (port 4200)

Tooling:
  fedshell validate # Validate configuration`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "fedshell.yaml", "config file path")
}
