package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tejaswini050302/TDS-Project-1/internal/corpus"
	"github.com/Tejaswini050302/TDS-Project-1/internal/embedder"
	"github.com/Tejaswini050302/TDS-Project-1/internal/ingestion"
	"github.com/Tejaswini050302/TDS-Project-1/internal/logging"
)

// NewIndexCmd constructs the `tdsta index` command, which rebuilds the
// search collection from embedded chunks.
func NewIndexCmd() *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Rebuild the search collection from embedded chunks",
		Long: `Drop and recreate the Qdrant collection, then insert every embedded chunk.

Records that do not decode, or that miss a source, text or a vector of the
expected size, are logged and skipped. Running twice over the same input leaves the same count.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: tds_chunks)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  REDIS_ADDR           When set, answers cached for the collection are invalidated

Examples:
  tdsta index
  tdsta index --in ./data/embedded_chunks.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			index, err := newQdrantIndex(log)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			defer func() { _ = index.Close() }()

			indexer, err := ingestion.NewIndexer(index, ingestion.IndexerConfig{
				Dimensions:    embedder.DefaultDimensions(embedder.Backend()),
				ProgressEvery: getEnvInt("EMBED_PROGRESS_EVERY", ingestion.DefaultProgressEvery),
				Log:           log,
			})
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			report, err := indexer.RunFile(ctx, in)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			invalidateAnswerCache(ctx, log)

			fmt.Fprintf(cmd.OutOrStdout(), "attempted %d, indexed %d, skipped %d (collection now holds %d)\n",
				report.Attempted, report.Indexed, report.Skipped, report.Count)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", corpus.EmbeddedChunksFile, "Embedded chunk artifact to index")

	return cmd
}
