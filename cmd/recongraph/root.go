package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recongraph",
		Short: "Reconnaissance for IP addresses, domains and identities",
		Long: `recongraph gathers public intelligence about a target.

The scan command queries geolocation, blocklist, exposure, ranking,
threat-intelligence and registration sources for an IPv4 address or a
domain and scores the result as a Low, Medium or High risk.

The footprint command looks up an identity: email addresses are checked
against breach data, phone numbers are validated, and usernames are
searched across a catalog of sites.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .recongraph in current, home or XDG config directory)")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewFootprintCmd())
	cmd.AddCommand(NewUpdateCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
