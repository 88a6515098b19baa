// Nixieclock is the clock daemon.
//
// It starts in configuration mode: a soft access point and a captive portal
// where the operator enters Wi-Fi credentials, an API key and a timezone.
// Once the portal has been idle for a minute it switches to clock mode,
// joins the configured network and keeps the tubes in sync with network
// time.
//
// Usage:
//
//	nixieclock [command] [flags]
//
// Running without arguments starts the daemon.
// See 'nixieclock --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lbogdanov/nixieclock/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "nixieclock",
	Short: "Nixie clock daemon",
	Long: `Runs the nixie clock.

The clock boots into configuration mode and serves a portal on its own
access point. After the portal has been idle it switches to clock mode,
which joins the configured network and resolves the local time.

If no command is specified, the daemon starts.`,
	Version:      version.Version,
	SilenceUsage: true,
	RunE:         runDaemon,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the settings file (default: per-user config dir)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(initConfigCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "nixieclock %s (commit: %s)\n", version.Version, version.Commit)
	},
}
