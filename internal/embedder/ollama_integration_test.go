//go:build integration

package embedder

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestOllamaEmbedder_Integration performs a real HTTP call to a locally running
// Ollama instance.
//
// Prerequisites:
//
//	ollama pull nomic-embed-text
//	ollama serve
//
// Run with:
//
//	go test -tags=integration -run TestOllamaEmbedder_Integration ./internal/embedder/
func TestOllamaEmbedder_Integration(t *testing.T) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}
	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = defaultOllamaModel
	}

	emb := NewOllamaEmbedder(&OllamaConfig{Host: host, Model: model})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	texts := []string{
		"GA1 is due on Sunday and covers VS Code, uv and HTTP requests.",
		"Use docker or podman to run the project container locally.",
	}

	// One text per call, the way the embed pipeline uses it.
	var vecs [][]float32
	for _, text := range texts {
		out, err := emb.Embed(ctx, []string{text})
		if err != nil {
			t.Fatalf("Embed() failed: %v\n\nEnsure Ollama is running and %q is pulled:\n  ollama pull %s", err, model, model)
		}
		vecs = append(vecs, out[0])
	}

	if len(vecs[0]) != len(vecs[1]) {
		t.Fatalf("dimension differs between calls: %d vs %d", len(vecs[0]), len(vecs[1]))
	}
	identical := true
	for j := range vecs[0] {
		if vecs[0][j] != vecs[1][j] {
			identical = false
			break
		}
	}
	if identical {
		t.Error("embeddings are identical, model may not be working correctly")
	}

	t.Logf("model=%s dim=%d (set EMBEDDING_DIMENSIONS=%d for the collection)", model, len(vecs[0]), len(vecs[0]))
}
