package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Tejaswini050302/TDS-Project-1/internal/apperr"
	"github.com/Tejaswini050302/TDS-Project-1/internal/corpus"
)

// Retrieval modes.
const (
	ModeLexical = "lexical"
	ModeHybrid  = "hybrid"
)

const (
	// DefaultTopK is used when Retrieve is called with topK <= 0.
	DefaultTopK = 5
	// DefaultTimeout bounds one retrieval round trip.
	DefaultTimeout = 10 * time.Second
)

// RetrieverConfig holds the dependencies of a HybridRetriever.
type RetrieverConfig struct {
	// Searcher runs the queries. Required.
	Searcher Searcher
	// Embedder embeds the question in hybrid mode. Required for ModeHybrid.
	Embedder Embedder
	// Mode is ModeLexical (default) or ModeHybrid.
	Mode string
	// DefaultTopK replaces a non-positive topK. Defaults to DefaultTopK.
	DefaultTopK int
	// Timeout bounds each Retrieve call. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Log receives degradation and validation warnings.
	Log *slog.Logger
}

// HybridRetriever implements Retriever on top of a Searcher. In hybrid mode
// it embeds the question and fuses vector and keyword relevance; when the
// embedding fails it falls back to keyword relevance alone.
type HybridRetriever struct {
	searcher    Searcher
	embedder    Embedder
	mode        string
	defaultTopK int
	timeout     time.Duration
	log         *slog.Logger
}

// NewRetriever validates cfg and returns a HybridRetriever.
func NewRetriever(cfg RetrieverConfig) (*HybridRetriever, error) {
	if cfg.Searcher == nil {
		return nil, fmt.Errorf("rag: searcher must not be nil")
	}
	mode := cfg.Mode
	if mode == "" {
		mode = ModeLexical
	}
	switch mode {
	case ModeLexical:
	case ModeHybrid:
		if cfg.Embedder == nil {
			return nil, fmt.Errorf("rag: hybrid mode requires an embedder")
		}
	default:
		return nil, fmt.Errorf("rag: unknown retrieval mode %q (valid values: lexical, hybrid)", mode)
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultTopK
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &HybridRetriever{
		searcher:    cfg.Searcher,
		embedder:    cfg.Embedder,
		mode:        mode,
		defaultTopK: cfg.DefaultTopK,
		timeout:     cfg.Timeout,
		log:         cfg.Log,
	}, nil
}

// Mode returns the configured retrieval mode.
func (r *HybridRetriever) Mode() string { return r.mode }

// Retrieve implements Retriever. A deadline failure is reported as
// KindDownstreamTimeout and any other search failure as KindRetrieval.
func (r *HybridRetriever) Retrieve(ctx context.Context, question string, topK int) ([]corpus.Hit, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		hits []corpus.Hit
		err  error
	)
	if vec := r.queryVector(ctx, question); vec != nil {
		hits, err = r.searcher.SearchHybrid(ctx, question, vec, topK)
	} else {
		hits, err = r.searcher.SearchLexical(ctx, question, topK)
	}
	if err != nil {
		if IsTimeout(err) || ctx.Err() != nil {
			return nil, apperr.New(apperr.KindDownstreamTimeout, "rag.retrieve", err)
		}
		return nil, apperr.New(apperr.KindRetrieval, "rag.retrieve", err)
	}

	return r.validate(hits, topK), nil
}

// queryVector embeds the question in hybrid mode. It returns nil in lexical
// mode or when embedding fails.
func (r *HybridRetriever) queryVector(ctx context.Context, question string) []float32 {
	if r.mode != ModeHybrid {
		return nil
	}
	vecs, err := r.embedder.Embed(ctx, []string{question})
	if err == nil && len(vecs) == 1 && len(vecs[0]) > 0 {
		return vecs[0]
	}
	if err == nil {
		err = fmt.Errorf("rag: embedder returned no vector")
	}
	r.log.Warn("rag: query embedding failed, falling back to lexical retrieval",
		slog.Any("error", err),
	)
	return nil
}

// validate drops hits without text or source, truncates to topK, and
// renumbers ranks from 0.
func (r *HybridRetriever) validate(hits []corpus.Hit, topK int) []corpus.Hit {
	out := make([]corpus.Hit, 0, min(len(hits), topK))
	for _, h := range hits {
		if strings.TrimSpace(h.Text) == "" || strings.TrimSpace(h.Source) == "" {
			r.log.Warn("rag: dropping malformed hit",
				slog.String("id", h.ID),
				slog.String("source", h.Source),
			)
			continue
		}
		if len(out) == topK {
			break
		}
		h.Rank = len(out)
		out = append(out, h)
	}
	return out
}
