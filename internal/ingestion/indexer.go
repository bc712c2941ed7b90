package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Tejaswini050302/TDS-Project-1/internal/apperr"
	"github.com/Tejaswini050302/TDS-Project-1/internal/corpus"
	"github.com/Tejaswini050302/TDS-Project-1/internal/logging"
	"github.com/Tejaswini050302/TDS-Project-1/internal/rag"
)

// Record validation failures.
var (
	ErrMissingSource    = errors.New("missing source")
	ErrEmptyText        = errors.New("empty text")
	ErrMissingEmbedding = errors.New("missing embedding")
	ErrWrongDimensions  = errors.New("embedding has wrong dimensions")
	ErrDuplicateID      = errors.New("duplicate document id")
)

// IndexReport summarises one indexing run.
type IndexReport struct {
	// Attempted is the number of input records.
	Attempted int
	// Indexed is the number of records written to the collection.
	Indexed int
	// Skipped is the number of records rejected with an indexing error.
	Skipped int
	// Count is the collection size reported by the engine after the run.
	Count uint64
}

// IndexerConfig holds the configuration for the indexing stage.
type IndexerConfig struct {
	// Dimensions is the collection vector size. Records with another length
	// are skipped. Zero disables the check.
	Dimensions int
	// ProgressEvery is the progress logging cadence. Defaults to 25.
	ProgressEvery int
	// Log receives per-record failures and progress.
	Log *slog.Logger
}

// Indexer rebuilds the search collection from embedded chunks.
type Indexer struct {
	index rag.Index
	cfg   IndexerConfig
}

// NewIndexer constructs an Indexer writing to index.
func NewIndexer(index rag.Index, cfg IndexerConfig) (*Indexer, error) {
	if index == nil {
		return nil, fmt.Errorf("ingestion: index must not be nil")
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = DefaultProgressEvery
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Indexer{index: index, cfg: cfg}, nil
}

// Run drops and recreates the collection, then inserts every valid record,
// one per call. A failure to recreate the collection aborts the run; a bad
// record is logged and skipped. Running twice over the same input leaves the
// same collection.
func (ix *Indexer) Run(ctx context.Context, records []corpus.EmbeddedChunk) (IndexReport, error) {
	entries := make([]entry, len(records))
	for i, rec := range records {
		entries[i] = entry{rec: rec}
	}
	return ix.run(ctx, entries)
}

// RunFile indexes the embedded chunk artifact at path. Array elements are
// decoded one at a time: an element that does not decode is counted as
// skipped and the remaining records are still indexed. Only an unreadable
// file or a top-level value that is not an array fails the run.
func (ix *Indexer) RunFile(ctx context.Context, path string) (IndexReport, error) {
	raw, err := corpus.ReadRawJSON(path)
	if err != nil {
		return IndexReport{}, apperr.Wrap(apperr.KindIndexing, "ingestion.read", err)
	}

	entries := make([]entry, len(raw))
	for i, r := range raw {
		if err := json.Unmarshal(r, &entries[i].rec); err != nil {
			entries[i] = entry{decodeErr: err}
		}
	}
	return ix.run(ctx, entries)
}

// entry is one input record; decodeErr is set when the element never made
// it to an EmbeddedChunk.
type entry struct {
	rec       corpus.EmbeddedChunk
	decodeErr error
}

func (ix *Indexer) run(ctx context.Context, entries []entry) (IndexReport, error) {
	log := ix.cfg.Log
	rep := IndexReport{Attempted: len(entries)}

	if err := ix.index.Recreate(ctx); err != nil {
		return rep, apperr.Wrap(apperr.KindIndexing, "ingestion.recreate", err)
	}

	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return rep, apperr.Wrap(apperr.KindIndexing, "ingestion.index", err)
		}

		if e.decodeErr != nil {
			rep.Skipped++
			log.Error("ingestion: skipping malformed record",
				slog.Int("index", i),
				slog.Any("error", apperr.New(apperr.KindIndexing, "ingestion.decode", e.decodeErr)),
			)
			logging.Progress(log, "index", i+1, len(entries), ix.cfg.ProgressEvery,
				slog.Int("skipped", rep.Skipped))
			continue
		}

		rec := e.rec
		doc, err := ToDocument(rec, i, ix.cfg.Dimensions)
		if err == nil {
			if first, dup := seen[doc.ID]; dup {
				err = fmt.Errorf("%w: %s (first at record %d)", ErrDuplicateID, doc.ID, first)
			}
		}
		if err == nil {
			seen[doc.ID] = i
			err = ix.index.Insert(ctx, doc)
		}

		if err != nil {
			rep.Skipped++
			log.Error("ingestion: skipping record",
				slog.Int("index", i),
				slog.String("source", rec.Source),
				slog.String("chunk_id", rec.ChunkID.String()),
				slog.Any("error", apperr.Wrap(apperr.KindIndexing, "ingestion.index", err)),
			)
		} else {
			rep.Indexed++
		}

		logging.Progress(log, "index", i+1, len(entries), ix.cfg.ProgressEvery,
			slog.Int("skipped", rep.Skipped))
	}

	n, err := ix.index.Count(ctx)
	if err != nil {
		return rep, apperr.Wrap(apperr.KindIndexing, "ingestion.count", err)
	}
	rep.Count = n
	return rep, nil
}

// ToDocument validates an embedded chunk and converts it to the indexed
// form. position stands in for a missing chunk_id. dims, when positive, is
// the required vector length.
//
// The document id is "{source}_{chunk_id}" using the raw chunk id, so forum
// chunks of different posts never collide; the integer chunk_id field holds
// the coerced value.
func ToDocument(rec corpus.EmbeddedChunk, position, dims int) (corpus.IndexedDocument, error) {
	var doc corpus.IndexedDocument

	source := strings.TrimSpace(rec.Source)
	if source == "" {
		return doc, ErrMissingSource
	}
	if strings.TrimSpace(rec.Text) == "" {
		return doc, ErrEmptyText
	}
	if len(rec.Embedding) == 0 {
		return doc, ErrMissingEmbedding
	}
	if dims > 0 && len(rec.Embedding) != dims {
		return doc, fmt.Errorf("%w: want %d, got %d", ErrWrongDimensions, dims, len(rec.Embedding))
	}

	rawID := rec.ChunkID
	if rawID == "" {
		rawID = corpus.IntChunkID(position)
	}
	chunkID, err := rawID.Int()
	if err != nil {
		return doc, err
	}

	doc = corpus.IndexedDocument{
		ID:        source + "_" + rawID.String(),
		Source:    source,
		ChunkID:   chunkID,
		Text:      rec.Text,
		Embedding: rec.Embedding,
		TopicID:   rec.TopicID,
		PostID:    rec.PostID,
	}
	if u, ok := rec.Metadata["url"].(string); ok {
		doc.URL = u
	}
	if doc.TopicID == 0 && doc.URL != "" {
		doc.TopicID = InferPostRef(doc.URL).TopicID
	}
	return doc, nil
}
