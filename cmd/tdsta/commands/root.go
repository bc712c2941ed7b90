// Package commands defines all Cobra CLI commands for the tdsta binary.
package commands

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Tejaswini050302/TDS-Project-1/internal/audit"
	"github.com/Tejaswini050302/TDS-Project-1/internal/config"
	"github.com/Tejaswini050302/TDS-Project-1/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tdsta",
		Short: "TDS Virtual TA: answers course questions from the course pages and forum",
		Long: `tdsta answers questions about the IIT Madras Tools in Data Science course.

The offline pipeline runs in three steps:
  tdsta chunk   split course pages and forum posts into chunks
  tdsta embed   embed every chunk (resumable)
  tdsta index   rebuild the search collection

Questions are answered with 'tdsta ask' or over HTTP with 'tdsta serve'.

Settings come from the environment, a .env file in the working directory, or
a YAML config file (~/.tdsta/config.yaml). Environment variables win.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			path, err := config.Load(configPath, logging.New())
			if err != nil {
				return err
			}

			// Rebuild after the YAML file may have set LOG_LEVEL / LOG_FORMAT.
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)
			cmd.SetContext(ctx)

			audit.LogCommandStart(ctx, log, cmd.Name(), path)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.tdsta/config.yaml)")

	root.AddCommand(
		NewChunkCmd(),
		NewEmbedCmd(),
		NewIndexCmd(),
		NewAskCmd(),
		NewServeCmd(),
		NewHistoryCmd(),
		NewVersionCmd(),
	)

	return root
}
