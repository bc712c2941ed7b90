package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Tejaswini050302/TDS-Project-1/internal/logging"
)

// NewHistoryCmd constructs the `tdsta history` command, which prints the
// most recent entries of the query log.
func NewHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently answered questions",
		Long: `Print the newest entries of the query log kept in the SQLite store (TDSTA_DB).

Examples:
  tdsta history
  tdsta history --limit 50`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			s, err := openStore(log)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			if s == nil {
				return fmt.Errorf("history: the store is disabled (TDSTA_DB=disabled)")
			}
			defer func() { _ = s.Close() }()

			records, err := s.Recent(ctx, limit)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tOUTCOME\tLINKS\tLATENCY\tQUESTION")
			for _, r := range records {
				outcome := string(r.Outcome)
				if r.ErrorKind != "" {
					outcome += ":" + r.ErrorKind
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"), outcome, r.Links, r.Latency, r.Question)
			}
			return tw.Flush() //nolint:wrapcheck // CLI entry point: error goes directly to cobra
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")

	return cmd
}
