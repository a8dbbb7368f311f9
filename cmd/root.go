// Package cmd defines the CLI commands for the stock monitor executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stock-monitor",
		Short: "Availability monitor for hosting product storefronts",
		Long: `stock-monitor crawls configured storefronts, tracks every product
listing it can reach (including unlinked ones found by endpoint probing),
and sends a Telegram notification whenever a product appears, restocks,
or gains a location.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional, env vars work alone)")
	cmd.AddCommand(newRunCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
