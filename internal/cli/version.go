package cli

import (
	"github.com/spf13/cobra"

	"github.com/dshills/wsindex/internal/storage"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("wsindex %s\n", Version)
			cmd.Printf("Build Mode: %s\n", storage.BuildMode)
			cmd.Printf("SQLite Driver: %s\n", storage.DriverName)
			cmd.Printf("Index Version: %s\n", storage.IndexVersion)
		},
	}
}
