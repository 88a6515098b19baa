// Nixieclock-cfg is the operator utility for nixie clocks.
//
// It finds clocks in configuration mode over mDNS, reads and writes their
// settings through the portal, and mirrors a running clock's face in the
// terminal.
//
// Usage:
//
//	nixieclock-cfg [command] [flags]
//
// See 'nixieclock-cfg --help' for available commands.
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

var rootCmd = &cobra.Command{
	Use:   "nixieclock-cfg",
	Short: "Nixie clock configuration utility",
	Long: `A utility for configuring nixie clocks.

Join the clock's access point ("NixieClock XXXX") while it is in
configuration mode, then use show and set to read or write its settings.
The clock leaves configuration mode a minute after the last request.`,
	Version:      version.Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "nixieclock-cfg %s (commit: %s)\n", version.Version, version.Commit)
	},
}
