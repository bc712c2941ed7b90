package commands

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/Tejaswini050302/TDS-Project-1/internal/cache"
	"github.com/Tejaswini050302/TDS-Project-1/internal/corpus"
)

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		val  string
		want time.Duration
	}{
		{"", 3 * time.Second},
		{"1500ms", 1500 * time.Millisecond},
		{"20", 20 * time.Second},
		{"soon", 3 * time.Second},
	}
	for _, tt := range tests {
		t.Setenv("TDSTA_TEST_DURATION", tt.val)
		if got := getEnvDuration("TDSTA_TEST_DURATION", 3*time.Second); got != tt.want {
			t.Errorf("getEnvDuration(%q) = %v, want %v", tt.val, got, tt.want)
		}
	}
}

func TestGetEnvInt_ExplicitZeroKept(t *testing.T) {
	t.Setenv("LEXICAL_TYPO_TOLERANCE", "0")
	if got := getEnvInt("LEXICAL_TYPO_TOLERANCE", defaultTypoTolerance); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestPrintAnswer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printAnswer(&buf, corpus.Answer{
		Answer: "Use gpt-3.5-turbo-0125.",
		Links:  []corpus.Link{{URL: "ga5.md", Text: "Relevant link"}},
	})
	want := "Use gpt-3.5-turbo-0125.\n\n- ga5.md (Relevant link)\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}

	buf.Reset()
	printAnswer(&buf, corpus.Answer{Answer: "Sorry"})
	if buf.String() != "Sorry\n" {
		t.Errorf("fallback output = %q", buf.String())
	}
}

func TestRootCmd_Version(t *testing.T) {
	t.Setenv("TDSTA_CONFIG", "")
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "tdsta ") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestChunkCmd_WritesArtifacts(t *testing.T) {
	t.Setenv("TDSTA_CONFIG", "")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CHUNK_SIZE", "3")
	t.Setenv("CHUNK_OVERLAP", "1")
	dir := t.TempDir()
	t.Chdir(dir)

	courseDir := filepath.Join(dir, "course")
	if err := os.MkdirAll(courseDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(courseDir, "w1.md"), []byte("alpha beta gamma delta epsilon"), 0o644); err != nil {
		t.Fatal(err)
	}
	posts := filepath.Join(dir, "posts.json")
	if err := os.WriteFile(posts, []byte(`[{"topic_id":1,"post_id":2,"content":"hello forum","url":"https://discourse.example/t/1/2"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "out")

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"chunk", "--course-dir", courseDir, "--posts", posts, "--out-dir", outDir})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	course, err := corpus.ReadJSON[corpus.Chunk](filepath.Join(outDir, corpus.CourseChunksFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(course) != 2 {
		t.Errorf("course chunks = %d, want 2", len(course))
	}
	all, err := corpus.ReadJSON[corpus.Chunk](filepath.Join(outDir, corpus.AllChunksFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("all chunks = %d, want 3", len(all))
	}
}

func TestInvalidateAnswerCache_BumpsCollectionGeneration(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("QDRANT_COLLECTION", "tds_course_2025")

	ctx := context.Background()
	c, err := cache.New(ctx, answerCacheConfig())
	if err != nil {
		t.Fatalf("cache.New() error: %v", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.Set(ctx, "When is GA5 due?", corpus.Answer{Answer: "Friday", Links: []corpus.Link{}}); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	invalidateAnswerCache(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if got, _ := mr.Get("tdsta:generation:tds_course_2025"); got != "1" {
		t.Errorf("generation = %q, want 1", got)
	}
	if _, ok, err := c.Get(ctx, "When is GA5 due?"); err != nil || ok {
		t.Errorf("Get() after reindex = ok %v, err %v; want a miss", ok, err)
	}
}

func TestInvalidateAnswerCache_NoRedisConfigured(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	// Must return without dialling anything.
	invalidateAnswerCache(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}
