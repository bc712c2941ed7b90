// Package ingestion implements the offline corpus pipeline stages that talk to
// external services: embedding every chunk one call at a time, and loading
// the embedded chunks into the search collection. Both stages isolate
// per-item failures: a bad item is logged, counted and skipped, and the run
// carries on.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Tejaswini050302/TDS-Project-1/internal/apperr"
	"github.com/Tejaswini050302/TDS-Project-1/internal/corpus"
	"github.com/Tejaswini050302/TDS-Project-1/internal/embedder"
	"github.com/Tejaswini050302/TDS-Project-1/internal/logging"
	"github.com/Tejaswini050302/TDS-Project-1/internal/rag"
	"github.com/Tejaswini050302/TDS-Project-1/internal/store"
)

// DefaultProgressEvery is the progress logging cadence of both stages.
const DefaultProgressEvery = 25

// errStopped marks an embedding attempt abandoned because the run is ending.
var errStopped = errors.New("ingestion: run stopped")

// Config holds the configuration for the embedding stage.
type Config struct {
	// Throttle paces embedding calls. Defaults to one call per
	// embedder.DefaultInterval.
	Throttle *embedder.Throttle

	// Checkpoint, when set, is consulted before each call and updated after
	// each success, so an interrupted run can resume.
	Checkpoint store.Checkpoint

	// Dimensions is the expected vector length. Zero disables the check.
	Dimensions int

	// ProgressEvery is the progress logging cadence. Defaults to 25.
	ProgressEvery int

	// Log receives per-item failures and progress.
	Log *slog.Logger
}

// Report summarises one embedding run.
type Report struct {
	// Total is the number of chunks submitted.
	Total int
	// Embedded is the number of chunks with a vector in the output,
	// including Reused.
	Embedded int
	// Reused is the number of vectors taken from the checkpoint.
	Reused int
	// Failed is the number of chunks dropped with an embedding error.
	Failed int
	// Interrupted is set when the context ended the run early.
	Interrupted bool
}

// Pipeline embeds chunks one at a time behind a Throttle.
type Pipeline struct {
	// embedder converts text chunks into dense vector embeddings.
	embedder rag.Embedder

	// cfg holds the resolved pipeline configuration.
	cfg *Config
}

// NewPipeline constructs a Pipeline from the provided embedder and config.
func NewPipeline(emb rag.Embedder, cfg *Config) (*Pipeline, error) {
	if emb == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Throttle == nil {
		cfg.Throttle = embedder.NewThrottle(embedder.DefaultInterval, embedder.DefaultCooldown)
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = DefaultProgressEvery
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Pipeline{embedder: emb, cfg: cfg}, nil
}

// EmbedAll embeds every chunk, one text per call, in input order. Chunks that
// fail are dropped from the output and counted in Report.Failed. When ctx
// ends, EmbedAll stops and returns what succeeded so far.
func (p *Pipeline) EmbedAll(ctx context.Context, chunks []corpus.Chunk) (Report, []corpus.EmbeddedChunk) {
	log := p.cfg.Log
	rep := Report{Total: len(chunks)}
	out := make([]corpus.EmbeddedChunk, 0, len(chunks))

	for i, ch := range chunks {
		if ctx.Err() != nil {
			rep.Interrupted = true
			break
		}

		vec, reused, err := p.embedOne(ctx, ch)
		switch {
		case err == nil:
			out = append(out, corpus.EmbeddedChunk{Chunk: ch, Embedding: vec})
			rep.Embedded++
			if reused {
				rep.Reused++
			}
		case errors.Is(err, errStopped):
			rep.Interrupted = true
		default:
			rep.Failed++
			log.Error("ingestion: dropping chunk",
				slog.Int("index", i),
				slog.String("source", ch.Source),
				slog.String("chunk_id", ch.ChunkID.String()),
				slog.Any("error", err),
			)
		}
		if rep.Interrupted {
			break
		}

		logging.Progress(log, "embed", i+1, len(chunks), p.cfg.ProgressEvery,
			slog.Int("failed", rep.Failed), slog.Int("reused", rep.Reused))
	}

	if rep.Interrupted {
		log.Warn("ingestion: embedding interrupted",
			slog.Int("embedded", rep.Embedded),
			slog.Int("remaining", rep.Total-rep.Embedded-rep.Failed),
		)
	}
	return rep, out
}

// embedOne returns the vector for ch, from the checkpoint when possible.
func (p *Pipeline) embedOne(ctx context.Context, ch corpus.Chunk) ([]float32, bool, error) {
	var key store.CheckpointKey
	if p.cfg.Checkpoint != nil {
		key = store.KeyFor(ch.Source, ch.ChunkID.String(), ch.Text)
		vec, ok, err := p.cfg.Checkpoint.Get(ctx, key)
		switch {
		case err != nil:
			p.cfg.Log.Warn("ingestion: checkpoint lookup failed", slog.Any("error", err))
		case ok && p.validVector(vec) == nil:
			return vec, true, nil
		}
	}

	if err := p.cfg.Throttle.Wait(ctx); err != nil {
		return nil, false, fmt.Errorf("%w: %w", errStopped, err)
	}

	vecs, err := p.embedder.Embed(ctx, []string{ch.Text})
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, fmt.Errorf("%w: %w", errStopped, ctx.Err())
		}
		if wait, limited := embedder.AsRateLimit(err); limited {
			p.cfg.Throttle.RecordRateLimit(wait)
		}
		return nil, false, apperr.New(apperr.KindEmbedding, "ingestion.embed", err)
	}
	if len(vecs) != 1 {
		return nil, false, apperr.New(apperr.KindEmbedding, "ingestion.embed",
			fmt.Errorf("expected 1 embedding, got %d", len(vecs)))
	}
	if err := p.validVector(vecs[0]); err != nil {
		return nil, false, apperr.New(apperr.KindEmbedding, "ingestion.embed", err)
	}

	if p.cfg.Checkpoint != nil {
		if err := p.cfg.Checkpoint.Put(ctx, key, vecs[0]); err != nil {
			p.cfg.Log.Warn("ingestion: checkpoint write failed", slog.Any("error", err))
		}
	}
	return vecs[0], false, nil
}

// validVector checks vec against the configured dimensions.
func (p *Pipeline) validVector(vec []float32) error {
	if len(vec) == 0 {
		return embedder.ErrEmptyEmbedding
	}
	if p.cfg.Dimensions > 0 && len(vec) != p.cfg.Dimensions {
		return fmt.Errorf("%w: want %d, got %d", embedder.ErrDimensionMismatch, p.cfg.Dimensions, len(vec))
	}
	return nil
}
