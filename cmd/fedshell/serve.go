package main

import (
	"fmt"
	"os"

	"github.com/artpar/fedshell/bootstrap"
	"github.com/artpar/fedshell/config"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the host",
	Long: `Start the fedshell host.

The host will:
  - Load configuration from fedshell.yaml (or --config)
  - Fall back to built-in defaults and FEDSHELL_* environment variables
  - Mount every configured slot from its remote
  - Serve the composed page, the host API and the event bridge

Environment variables:
  FEDSHELL_SERVER_PORT      - Host port (default: 4200)
  FEDSHELL_BRIDGE_SECRET    - Require signed bridge events
  FEDSHELL_LEDGER_INITIAL   - Initial balance (default: 50000)
  FEDSHELL_LOG_LEVEL        - Log level: debug, info, warn, error

Examples:
  fedshell serve
  fedshell serve --config /etc/fedshell/fedshell.yaml
  fedshell serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	var app *bootstrap.App
	var err error

	if hasConfigFile && hotReload {
		// Hot reload only works with config file
		app, err = bootstrap.NewWithHotReload(cfgFile)
	} else {
		cfg, loadErr := config.LoadWithFallback(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}

		if !hasConfigFile {
			fmt.Println("Running with built-in defaults (no config file)")
		}

		app, err = bootstrap.New(cfg)
	}

	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
