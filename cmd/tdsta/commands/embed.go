package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tejaswini050302/TDS-Project-1/internal/corpus"
	"github.com/Tejaswini050302/TDS-Project-1/internal/embedder"
	"github.com/Tejaswini050302/TDS-Project-1/internal/ingestion"
	"github.com/Tejaswini050302/TDS-Project-1/internal/logging"
)

// NewEmbedCmd constructs the `tdsta embed` command, which embeds every chunk
// one text per call behind the throttle.
func NewEmbedCmd() *cobra.Command {
	var in, out string
	var noResume bool

	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed every chunk (resumable)",
		Long: `Embed every chunk in --in and write the vectors to --out.

Calls are paced by EMBED_INTERVAL (default 1.2s) and pause for the
Retry-After window when the provider answers 429. A chunk that fails is
logged and dropped; the run continues.

Vectors are checkpointed in the SQLite store (TDSTA_DB), so an interrupted
run picks up where it stopped. Pass --no-resume to embed everything again.
On Ctrl-C the chunks embedded so far are still written.

Examples:
  tdsta embed
  EMBEDDING_PROVIDER=ollama tdsta embed --in all_chunks.json --out embedded_chunks.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log := logging.FromContext(ctx)

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("embed: %w", err)
			}
			throttle := embedder.NewThrottle(getEnvDuration("EMBED_INTERVAL", embedder.DefaultInterval), embedder.DefaultCooldown)
			emb, err := embedder.NewFromEnv(embedder.WithPacer(throttle))
			if err != nil {
				return fmt.Errorf("embed: failed to initialise embedder: %w", err)
			}
			backend := embedder.Backend()
			dims := embedder.DefaultDimensions(backend)
			log.Info("embedder initialised", slog.String("provider", backend), slog.Int("dimensions", dims))

			chunks, err := corpus.ReadJSON[corpus.Chunk](in)
			if err != nil {
				return fmt.Errorf("embed: %w", err)
			}

			cfg := &ingestion.Config{
				Throttle:      throttle,
				Dimensions:    dims,
				ProgressEvery: getEnvInt("EMBED_PROGRESS_EVERY", ingestion.DefaultProgressEvery),
				Log:           log,
			}
			if noResume {
				log.Info("embed: resume disabled, every chunk is embedded again")
			} else {
				s, sErr := openStore(log)
				if sErr != nil {
					log.Warn("embed: checkpoint unavailable, embedding without resume", slog.Any("error", sErr))
				} else if s != nil {
					defer func() { _ = s.Close() }()
					cfg.Checkpoint = s
				}
			}

			pipeline, err := ingestion.NewPipeline(emb, cfg)
			if err != nil {
				return fmt.Errorf("embed: %w", err)
			}

			report, embedded := pipeline.EmbedAll(ctx, chunks)
			if embedded == nil {
				embedded = []corpus.EmbeddedChunk{}
			}
			if err := corpus.WriteJSON(out, embedded); err != nil {
				return fmt.Errorf("embed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "embedded %d of %d chunks (%d reused, %d failed) -> %s\n",
				report.Embedded, report.Total, report.Reused, report.Failed, out)
			if report.Interrupted {
				return fmt.Errorf("embed: interrupted, rerun to resume: %w", ctx.Err())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", corpus.AllChunksFile, "Chunk artifact to embed")
	cmd.Flags().StringVarP(&out, "out", "o", corpus.EmbeddedChunksFile, "Output file for embedded chunks")
	cmd.Flags().BoolVar(&noResume, "no-resume", false, "Ignore the checkpoint and embed every chunk again")

	return cmd
}
