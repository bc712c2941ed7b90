package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tejaswini050302/TDS-Project-1/internal/version"
)

// NewVersionCmd constructs the `tdsta version` subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tdsta version, git commit, and build date",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
