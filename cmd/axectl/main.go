// Axectl is a command line utility for discovering and monitoring
// Bitaxe and NerdQaxe bitcoin miners on the local network.
//
// It combines mDNS service browsing with HTTP subnet scanning to find
// devices, keeps a persistent device cache between runs, and provides
// continuous fleet monitoring with temperature, hashrate, and
// reachability alerts.
//
// Usage:
//
//	axectl [command] [flags]
//
// See 'axectl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/axefleet/axectl/internal/api"
	"github.com/axefleet/axectl/internal/logging"
	"github.com/axefleet/axectl/internal/version"
)

func main() {
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := api.GetTroubleshootingHint(err); hint != "" {
			fmt.Fprintf(os.Stderr, "  %s\n", hint)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "axectl",
	Short: "Bitaxe fleet discovery and monitoring",
	Long: `A command line utility for network-attached bitcoin miners.

Discovers Bitaxe and NerdQaxe devices via mDNS and subnet scanning,
shows live mining statistics, monitors the fleet with configurable
alerts, and sends control commands to individual devices.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("axectl %s\n", version.Full())
	},
}
