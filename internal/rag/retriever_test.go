package rag

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tejaswini050302/TDS-Project-1/internal/apperr"
	"github.com/Tejaswini050302/TDS-Project-1/internal/corpus"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeSearcher records the calls made to it and returns canned hits.
type fakeSearcher struct {
	hits       []corpus.Hit
	err        error
	block      bool
	lexical    int
	hybrid     int
	lastTopK   int
	lastVector []float32
}

func (f *fakeSearcher) wait(ctx context.Context) error {
	if !f.block {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeSearcher) SearchLexical(ctx context.Context, _ string, topK int) ([]corpus.Hit, error) {
	f.lexical++
	f.lastTopK = topK
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.hits, f.err
}

func (f *fakeSearcher) SearchHybrid(ctx context.Context, _ string, vec []float32, topK int) ([]corpus.Hit, error) {
	f.hybrid++
	f.lastTopK = topK
	f.lastVector = vec
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.hits, f.err
}

// fakeEmbedder returns a fixed vector or a fixed error.
type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRetrieve_DefaultTopK(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{}
	r, err := NewRetriever(RetrieverConfig{Searcher: s, Log: discardLogger()})
	require.NoError(t, err)

	hits, err := r.Retrieve(context.Background(), "what is GA1", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, DefaultTopK, s.lastTopK)
	assert.Equal(t, 1, s.lexical)
}

func TestRetrieve_DropsMalformedHitsAndRenumbers(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{hits: []corpus.Hit{
		{ID: "a.md_0", Source: "a.md", Text: "alpha", Rank: 0},
		{ID: "x_0", Source: "", Text: "orphan", Rank: 1},
		{ID: "b.md_0", Source: "b.md", Text: "  ", Rank: 2},
		{ID: "c.md_1", Source: "c.md", Text: "gamma", Rank: 3},
	}}
	r, err := NewRetriever(RetrieverConfig{Searcher: s, Log: discardLogger()})
	require.NoError(t, err)

	hits, err := r.Retrieve(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a.md", hits[0].Source)
	assert.Equal(t, 0, hits[0].Rank)
	assert.Equal(t, "c.md", hits[1].Source)
	assert.Equal(t, 1, hits[1].Rank)
}

func TestRetrieve_TruncatesToTopK(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{hits: []corpus.Hit{
		{Source: "a.md", Text: "1"}, {Source: "b.md", Text: "2"}, {Source: "c.md", Text: "3"},
	}}
	r, err := NewRetriever(RetrieverConfig{Searcher: s, Log: discardLogger()})
	require.NoError(t, err)

	hits, err := r.Retrieve(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestRetrieve_EngineFailureIsRetrievalError(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{err: errors.New("connection refused")}
	r, err := NewRetriever(RetrieverConfig{Searcher: s, Log: discardLogger()})
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "q", 3)
	require.Error(t, err)
	assert.Equal(t, apperr.KindRetrieval, apperr.KindOf(err))
}

func TestRetrieve_DeadlineIsDownstreamTimeout(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{block: true}
	r, err := NewRetriever(RetrieverConfig{Searcher: s, Timeout: 20 * time.Millisecond, Log: discardLogger()})
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "q", 3)
	require.Error(t, err)
	assert.Equal(t, apperr.KindDownstreamTimeout, apperr.KindOf(err))
}

func TestRetrieve_HybridUsesQueryVector(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{hits: []corpus.Hit{{Source: "a.md", Text: "x"}}}
	r, err := NewRetriever(RetrieverConfig{
		Searcher: s,
		Embedder: &fakeEmbedder{vec: []float32{0.1, 0.2}},
		Mode:     ModeHybrid,
		Log:      discardLogger(),
	})
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, s.hybrid)
	assert.Equal(t, 0, s.lexical)
	assert.Equal(t, []float32{0.1, 0.2}, s.lastVector)
}

func TestRetrieve_HybridDegradesWhenEmbeddingFails(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{hits: []corpus.Hit{{Source: "a.md", Text: "x"}}}
	r, err := NewRetriever(RetrieverConfig{
		Searcher: s,
		Embedder: &fakeEmbedder{err: errors.New("429")},
		Mode:     ModeHybrid,
		Log:      discardLogger(),
	})
	require.NoError(t, err)

	hits, err := r.Retrieve(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, 0, s.hybrid)
	assert.Equal(t, 1, s.lexical)
}

func TestNewRetriever_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewRetriever(RetrieverConfig{})
	assert.Error(t, err, "nil searcher")

	_, err = NewRetriever(RetrieverConfig{Searcher: &fakeSearcher{}, Mode: ModeHybrid})
	assert.Error(t, err, "hybrid without embedder")

	_, err = NewRetriever(RetrieverConfig{Searcher: &fakeSearcher{}, Mode: "semantic"})
	assert.Error(t, err, "unknown mode")
}

func TestPointID_Deterministic(t *testing.T) {
	t.Parallel()

	a := PointID("w1.md_0")
	assert.Equal(t, a, PointID("w1.md_0"))
	assert.NotEqual(t, a, PointID("w1.md_1"))
	assert.Len(t, a, 36)
}
