package chunker

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/Tejaswini050302/TDS-Project-1/internal/apperr"
	"github.com/Tejaswini050302/TDS-Project-1/internal/corpus"
)

// Report summarises one chunking run.
type Report struct {
	// Documents is the number of documents read.
	Documents int
	// Chunks is the number of chunks produced.
	Chunks int
	// Failed is the number of documents skipped with a chunking error.
	Failed int
}

// CourseDir chunks every *.md file in dir, in file-name order. A file that
// cannot be read or decoded is logged and skipped; only a missing or
// unreadable directory fails the run.
func (c *Chunker) CourseDir(dir string, log *slog.Logger) ([]corpus.Chunk, Report, error) {
	var rep Report

	paths, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, rep, fmt.Errorf("chunker: glob %s: %w", dir, err)
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, rep, fmt.Errorf("chunker: course dir: %w", err)
	}
	sort.Strings(paths)

	var out []corpus.Chunk
	for _, p := range paths {
		rep.Documents++
		name := filepath.Base(p)

		data, err := os.ReadFile(p)
		if err != nil {
			rep.Failed++
			log.Error("chunker: skipping unreadable course page",
				slog.String("source", name),
				slog.Any("error", apperr.New(apperr.KindChunking, "chunker.read", err)),
			)
			continue
		}

		chunks, err := c.Course(corpus.Document{Source: name, Text: string(data)})
		if err != nil {
			rep.Failed++
			log.Error("chunker: skipping course page", slog.String("source", name), slog.Any("error", err))
			continue
		}
		out = append(out, chunks...)
	}

	rep.Chunks = len(out)
	return out, rep, nil
}

// Posts chunks every post in the forum export at path. Each element is
// decoded on its own so one malformed post does not hide the rest.
func (c *Chunker) Posts(path string, log *slog.Logger) ([]corpus.Chunk, Report, error) {
	var rep Report

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rep, fmt.Errorf("chunker: read posts: %w", err)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, rep, fmt.Errorf("chunker: decode posts %s: %w", path, err)
	}

	var out []corpus.Chunk
	for i, r := range raw {
		rep.Documents++

		var post corpus.Post
		if err := json.Unmarshal(r, &post); err != nil {
			rep.Failed++
			log.Error("chunker: skipping malformed post",
				slog.Int("index", i),
				slog.Any("error", apperr.New(apperr.KindChunking, "chunker.decode", err)),
			)
			continue
		}

		chunks, err := c.Discourse(post)
		if err != nil {
			rep.Failed++
			log.Error("chunker: skipping post", slog.Int64("post_id", post.PostID), slog.Any("error", err))
			continue
		}
		out = append(out, chunks...)
	}

	rep.Chunks = len(out)
	return out, rep, nil
}
