package cli

import (
	"github.com/spf13/cobra"
)

// Execute builds and runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile  string
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:   "logbot",
		Short: "Ships IRC channel activity to remote syslog collectors",
		Long: `logbot turns IRC channel activity into log records and ships every record
to each configured collector over TCP, one line per record.

Input comes from stdin, tailed files or a network listener and may be raw IRC
protocol lines, JSON records or plain text. Records fan out to the collector
shipper and to the optional console, archive and elasticsearch emitters.

Collector connections are reopened on failure after a flat delay; lines logged
while no collector is connected are queued and flushed once one connects.

Hot-reload: When a config file is specified, changes are automatically applied
without requiring a restart.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		NewRunCmd(&cfgFile, &logLevel),
		NewValidateCmd(&cfgFile),
		NewRenderCmd(),
		NewVersionCmd(),
	)

	return rootCmd
}
