package main

import (
	"context"
	"fmt"
	"os"
	"time"

	remoteclient "github.com/artpar/fedshell/adapters/remote"
	"github.com/artpar/fedshell/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the fedshell configuration file.

Checks:
  - YAML syntax is valid
  - Remotes are well formed and unique
  - Slots reference declared remotes
  - Remote manifests expose the configured module (optional)

Examples:
  fedshell validate
  fedshell validate --check-remotes --config /etc/fedshell/fedshell.yaml`,
	RunE: runValidate,
}

var (
	validateCheckRemotes bool
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckRemotes, "check-remotes", false, "fetch every remote manifest")
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Printf("  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Printf("  %s Config file exists\n", checkMark)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Printf("  %s Config syntax valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Printf("  %s Config syntax valid\n", checkMark)

	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	fmt.Printf("  %s Remotes: %v\n", checkMark, reg.Names())
	fmt.Printf("  %s Slots configured: %d\n", checkMark, len(cfg.Slots))
	fmt.Printf("  %s Balance: %s %s (overdraft %s)\n", checkMark, cfg.Ledger.InitialBalance, cfg.Ledger.Currency, cfg.Ledger.Overdraft)

	for _, s := range cfg.UnboundSlots() {
		fmt.Printf("  %s Slot %q uses undeclared remote %q\n", crossMark, s.Slot, s.Remote)
	}

	if validateCheckRemotes {
		source := remoteclient.NewManifestSource(remoteclient.NewClient(remoteclient.ClientConfig{Timeout: 5 * time.Second}))
		for _, name := range reg.Names() {
			d, _ := reg.Resolve(name)
			if err := checkRemote(source, d.ManifestURL, d.ExposedModule); err != nil {
				fmt.Printf("  %s Remote %s reachable\n", crossMark, name)
				fmt.Printf("      Error: %v\n", err)
			} else {
				fmt.Printf("  %s Remote %s reachable\n", checkMark, name)
			}
		}
	}

	fmt.Println()
	fmt.Println("Configuration is valid.")
	return nil
}

func checkRemote(source *remoteclient.ManifestSource, manifestURL, exposed string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	manifest, err := source.FetchManifest(ctx, manifestURL)
	if err != nil {
		return err
	}
	_, err = manifest.Resolve(exposed)
	return err
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
