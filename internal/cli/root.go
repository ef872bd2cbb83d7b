package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is the version of the wsindex CLI
const Version = "v1.0.0"

// Global flags shared by every subcommand
const (
	flagConfig   = "config"
	flagRoot     = "root"
	flagLogLevel = "log-level"
)

// NewRootCmd creates the root command for wsindex
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wsindex",
		Short:         "Incremental workspace indexer and MCP server",
		Long:          "wsindex keeps a persistent, incrementally updated index of the source files in a workspace and exposes it on the command line and over MCP.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Command output belongs on stdout, cobra defaults Print* to stderr
	rootCmd.SetOut(os.Stdout)

	rootCmd.PersistentFlags().String(flagConfig, "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String(flagRoot, "", "Workspace root (defaults to the configured root)")
	rootCmd.PersistentFlags().String(flagLogLevel, "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(newIndexCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newFileCmd())
	rootCmd.AddCommand(newClearCmd())
	rootCmd.AddCommand(newSnapshotsCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
