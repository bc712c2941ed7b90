package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Tejaswini050302/TDS-Project-1/internal/corpus"
	"github.com/Tejaswini050302/TDS-Project-1/internal/logging"
	"github.com/Tejaswini050302/TDS-Project-1/internal/tracing"
	"github.com/Tejaswini050302/TDS-Project-1/internal/version"
)

// NewAskCmd constructs the `tdsta ask` command, which answers one question
// and prints the answer with its source links.
func NewAskCmd() *cobra.Command {
	var topK int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one course question",
		Long: `Answer a question from the indexed course pages and forum posts.

The answer is followed by one link per retrieved chunk, in rank order.
With --json the response is printed in the same shape the HTTP API returns.

Examples:
  tdsta ask "Should I use gpt-4o-mini or gpt-3.5-turbo for GA5?"
  tdsta ask --top-k 8 --json "How is the end-term exam graded?"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			flush, ok := tracing.Setup(tracing.ConfigFromEnv(version.Version))
			defer flush()
			if ok {
				log.Info("langfuse tracing enabled")
			}

			stack, err := buildAnswerStack(ctx, log, topK)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer stack.Close()

			ans, err := stack.service.Ask(ctx, corpus.Query{Question: args[0]})
			if err != nil {
				log.Debug("ask: failed", slog.Any("error", err))
				return fmt.Errorf("ask: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ans) //nolint:wrapcheck // CLI entry point: error goes directly to cobra
			}
			printAnswer(cmd.OutOrStdout(), ans)
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve (default: RETRIEVAL_TOP_K or 5)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the response as JSON")

	return cmd
}

func printAnswer(w io.Writer, ans corpus.Answer) {
	fmt.Fprintln(w, ans.Answer)
	if len(ans.Links) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, l := range ans.Links {
		fmt.Fprintf(w, "- %s (%s)\n", l.URL, l.Text)
	}
}
