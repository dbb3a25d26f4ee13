package main

import (
	"fmt"

	"github.com/artpar/fedshell/bootstrap"
	"github.com/artpar/fedshell/config"
	"github.com/spf13/cobra"
)

var (
	remoteRegister bool
	remotePort     int
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Start the transfers remote",
	Long: `Start the transfers remote.

The remote serves:
  GET  /remoteEntry.json    manifest exposing ./TransferComponent
  GET  /fragments/transfer  transfer form fragment
  POST /transfers           execute a transfer (JSON or form)

Successful transfers are announced to the host at bridge.host_url.
With --register the remote also publishes an accessor with the host so
the host can mount it when the manifest is unreachable.

Examples:
  fedshell remote
  fedshell remote --register
  FEDSHELL_BRIDGE_HOST_URL=http://shell:4200 fedshell remote --port 4301`,
	RunE: runRemote,
}

func init() {
	rootCmd.AddCommand(remoteCmd)

	remoteCmd.Flags().BoolVar(&remoteRegister, "register", false, "register an accessor with the host on startup")
	remoteCmd.Flags().IntVar(&remotePort, "port", 0, "listen port (overrides remote_server.port)")
}

func runRemote(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if cmd.Flags().Changed("register") {
		cfg.Remote.Register = remoteRegister
	}
	if remotePort != 0 {
		// A derived public URL follows the port.
		if cfg.Remote.PublicURL == fmt.Sprintf("http://localhost:%d", cfg.Remote.Port) {
			cfg.Remote.PublicURL = fmt.Sprintf("http://localhost:%d", remotePort)
		}
		cfg.Remote.Port = remotePort
	}

	app, err := bootstrap.NewRemote(cfg, bootstrap.RemoteOptions{})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	return app.Run()
}
