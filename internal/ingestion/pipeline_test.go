package ingestion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Tejaswini050302/TDS-Project-1/internal/corpus"
	"github.com/Tejaswini050302/TDS-Project-1/internal/embedder"
	"github.com/Tejaswini050302/TDS-Project-1/internal/store"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeEmbedder returns a 3-dim vector per text, or the error mapped to it.
type fakeEmbedder struct {
	mu     sync.Mutex
	calls  int
	batch  []int
	errFor map[string]error
	onCall func(n int)
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.batch = append(f.batch, len(texts))
	f.mu.Unlock()

	if f.onCall != nil {
		f.onCall(n)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := f.errFor[text]; err != nil {
			return nil, err
		}
		out[i] = []float32{float32(len(text)), 1, 2}
	}
	return out, nil
}

// memCheckpoint is an in-memory store.Checkpoint.
type memCheckpoint struct {
	mu   sync.Mutex
	vecs map[store.CheckpointKey][]float32
}

func newMemCheckpoint() *memCheckpoint {
	return &memCheckpoint{vecs: make(map[store.CheckpointKey][]float32)}
}

func (m *memCheckpoint) Get(_ context.Context, key store.CheckpointKey) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vecs[key]
	return v, ok, nil
}

func (m *memCheckpoint) Put(_ context.Context, key store.CheckpointKey, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vecs[key] = vec
	return nil
}

func quietLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testChunks(texts ...string) []corpus.Chunk {
	out := make([]corpus.Chunk, len(texts))
	for i, text := range texts {
		out[i] = corpus.Chunk{Source: "w1.md", ChunkID: corpus.IntChunkID(i), Text: text}
	}
	return out
}

func newTestPipeline(t *testing.T, emb *fakeEmbedder, cfg *Config) *Pipeline {
	t.Helper()
	if cfg.Throttle == nil {
		cfg.Throttle = embedder.NewThrottle(0, 0)
	}
	cfg.Log = quietLog()
	p, err := NewPipeline(emb, cfg)
	if err != nil {
		t.Fatalf("NewPipeline() error: %v", err)
	}
	return p
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestEmbedAll_OneFailureDropsOneChunk(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{errFor: map[string]error{"bad": errors.New("HTTP 500")}}
	p := newTestPipeline(t, emb, &Config{})

	chunks := testChunks("one", "two", "bad", "four", "five")
	rep, out := p.EmbedAll(context.Background(), chunks)

	if rep.Total != 5 || rep.Embedded != 4 || rep.Failed != 1 {
		t.Fatalf("report = %+v, want 5 total / 4 embedded / 1 failed", rep)
	}
	if len(out) != len(chunks)-1 {
		t.Fatalf("len(out) = %d, want %d", len(out), len(chunks)-1)
	}
	for _, ec := range out {
		if ec.Text == "bad" {
			t.Error("failed chunk must not appear in the output")
		}
		if len(ec.Embedding) == 0 {
			t.Errorf("chunk %s has no embedding", ec.ChunkID)
		}
	}
	if out[2].Text != "four" {
		t.Errorf("output order broken: out[2] = %q", out[2].Text)
	}
}

func TestEmbedAll_OneTextPerCall(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{}
	p := newTestPipeline(t, emb, &Config{})
	p.EmbedAll(context.Background(), testChunks("a", "b", "c"))

	if emb.calls != 3 {
		t.Errorf("calls = %d, want 3", emb.calls)
	}
	for i, n := range emb.batch {
		if n != 1 {
			t.Errorf("call %d sent %d texts, want 1", i, n)
		}
	}
}

func TestEmbedAll_WrongDimensionsDropped(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, &fakeEmbedder{}, &Config{Dimensions: 1536})
	rep, out := p.EmbedAll(context.Background(), testChunks("a"))
	if rep.Failed != 1 || len(out) != 0 {
		t.Errorf("report = %+v, out = %d, want the chunk dropped", rep, len(out))
	}
}

func TestEmbedAll_ResumesFromCheckpoint(t *testing.T) {
	t.Parallel()

	cp := newMemCheckpoint()
	chunks := testChunks("alpha", "beta", "gamma")

	first := &fakeEmbedder{}
	newTestPipeline(t, first, &Config{Checkpoint: cp}).EmbedAll(context.Background(), chunks[:2])
	if first.calls != 2 {
		t.Fatalf("first run calls = %d, want 2", first.calls)
	}

	second := &fakeEmbedder{}
	rep, out := newTestPipeline(t, second, &Config{Checkpoint: cp}).EmbedAll(context.Background(), chunks)
	if second.calls != 1 {
		t.Errorf("second run calls = %d, want 1 (only the new chunk)", second.calls)
	}
	if rep.Reused != 2 || rep.Embedded != 3 || len(out) != 3 {
		t.Errorf("report = %+v, len(out) = %d", rep, len(out))
	}
}

func TestEmbedAll_RateLimitOpensCooldown(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{errFor: map[string]error{
		"limited": &embedder.StatusError{Backend: "openai", Code: 429},
	}}
	th := embedder.NewThrottle(0, 40*time.Millisecond)
	p := newTestPipeline(t, emb, &Config{Throttle: th})

	start := time.Now()
	rep, out := p.EmbedAll(context.Background(), testChunks("limited", "after"))
	elapsed := time.Since(start)

	if rep.Failed != 1 || len(out) != 1 || out[0].Text != "after" {
		t.Fatalf("report = %+v, out = %v", rep, out)
	}
	if elapsed < 35*time.Millisecond {
		t.Errorf("run took %v, want the cooldown (40ms) honoured before the next call", elapsed)
	}
}

func TestEmbedAll_CancellationReturnsPartial(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emb := &fakeEmbedder{onCall: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	p := newTestPipeline(t, emb, &Config{})

	rep, out := p.EmbedAll(ctx, testChunks("a", "b", "c", "d"))
	if !rep.Interrupted {
		t.Error("report must be marked interrupted")
	}
	if rep.Failed != 0 {
		t.Errorf("cancellation must not count as a failure, got %d", rep.Failed)
	}
	if len(out) > 2 || len(out) < 1 {
		t.Errorf("len(out) = %d, want the chunks embedded before cancel", len(out))
	}
}

func TestNewPipeline_NilEmbedder(t *testing.T) {
	t.Parallel()

	if _, err := NewPipeline(nil, nil); err == nil {
		t.Fatal("expected error for nil embedder")
	}
}
