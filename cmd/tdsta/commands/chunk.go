package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Tejaswini050302/TDS-Project-1/internal/chunker"
	"github.com/Tejaswini050302/TDS-Project-1/internal/corpus"
	"github.com/Tejaswini050302/TDS-Project-1/internal/logging"
)

// NewChunkCmd constructs the `tdsta chunk` command, which splits the course
// pages and the forum export into chunk artifacts.
func NewChunkCmd() *cobra.Command {
	var courseDir, postsPath, outDir string

	cmd := &cobra.Command{
		Use:   "chunk",
		Short: "Split course pages and forum posts into chunks",
		Long: `Split the course markdown pages and the Discourse export into chunks.

Course pages are cut into overlapping word windows (CHUNK_SIZE words,
CHUNK_OVERLAP shared words). Forum posts are wrapped into fragments of at
most DISCOURSE_MAX_CHARS characters.

Writes course_chunks.json, discourse_chunks.json and all_chunks.json to
--out-dir. A document that cannot be read is logged and skipped.

Examples:
  tdsta chunk
  tdsta chunk --course-dir ./course --posts ./discourse_posts.json --out-dir ./data`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.FromContext(cmd.Context())

			c, err := chunker.New(chunker.Config{
				Size:     getEnvInt("CHUNK_SIZE", chunker.DefaultSize),
				Overlap:  getEnvInt("CHUNK_OVERLAP", chunker.DefaultOverlap),
				MaxChars: getEnvInt("DISCOURSE_MAX_CHARS", chunker.DefaultMaxChars),
			})
			if err != nil {
				return fmt.Errorf("chunk: %w", err)
			}

			course, courseRep, err := c.CourseDir(courseDir, log)
			if err != nil {
				return fmt.Errorf("chunk: %w", err)
			}
			logReport(log, "course", courseRep)

			forum, forumRep, err := c.Posts(postsPath, log)
			if err != nil {
				return fmt.Errorf("chunk: %w", err)
			}
			logReport(log, "discourse", forumRep)

			all := make([]corpus.Chunk, 0, len(course)+len(forum))
			all = append(all, course...)
			all = append(all, forum...)

			outputs := []struct {
				name   string
				chunks []corpus.Chunk
			}{
				{corpus.CourseChunksFile, course},
				{corpus.DiscourseChunksFile, forum},
				{corpus.AllChunksFile, all},
			}
			for _, o := range outputs {
				path := filepath.Join(outDir, o.name)
				if o.chunks == nil {
					o.chunks = []corpus.Chunk{}
				}
				if err := corpus.WriteJSON(path, o.chunks); err != nil {
					return fmt.Errorf("chunk: %w", err)
				}
				log.Info("chunk: wrote artifact", slog.String("path", path), slog.Int("chunks", len(o.chunks)))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "course: %d chunks from %d documents (%d failed)\n",
				courseRep.Chunks, courseRep.Documents, courseRep.Failed)
			fmt.Fprintf(cmd.OutOrStdout(), "discourse: %d chunks from %d posts (%d failed)\n",
				forumRep.Chunks, forumRep.Documents, forumRep.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&courseDir, "course-dir", "course", "Directory of course markdown pages")
	cmd.Flags().StringVar(&postsPath, "posts", "discourse_posts.json", "Discourse export (JSON array of posts)")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", ".", "Directory the chunk artifacts are written to")

	return cmd
}

func logReport(log *slog.Logger, kind string, rep chunker.Report) {
	log.Info("chunk: "+kind+" done",
		slog.Int("documents", rep.Documents),
		slog.Int("chunks", rep.Chunks),
		slog.Int("failed", rep.Failed),
	)
}
