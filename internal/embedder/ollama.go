package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaEmbedder implements rag.Embedder using the Ollama /api/embed endpoint.
// It is safe for concurrent use. No API key is required.
type OllamaEmbedder struct {
	// host is the Ollama server base URL (e.g. "http://localhost:11434").
	host string
	// model is the embedding model name (e.g. "nomic-embed-text").
	model string
	// dimensions is the expected vector length (0 = do not check).
	dimensions int
	maxRetries   uint64
	retryInitial time.Duration
	pacer        Pacer
	// client is the shared HTTP client.
	client *http.Client
}

// OllamaConfig holds the settings for constructing an OllamaEmbedder.
type OllamaConfig struct {
	// Host is the Ollama server base URL (e.g. "http://localhost:11434").
	Host string
	// Model is the embedding model name (e.g. "nomic-embed-text").
	Model string
	// Dimensions is the expected vector length. Zero disables the check.
	Dimensions int
	// MaxRetries bounds retries on 5xx and transport errors. Zero disables them.
	MaxRetries int
	// Pacer, when set, is waited on before every retry.
	Pacer Pacer
}

// NewOllamaEmbedder constructs an OllamaEmbedder from the given config.
func NewOllamaEmbedder(cfg *OllamaConfig) *OllamaEmbedder {
	return &OllamaEmbedder{
		host:         cfg.Host,
		model:        cfg.Model,
		dimensions:   cfg.Dimensions,
		maxRetries:   uint64(max(cfg.MaxRetries, defaultMaxRetries)),
		retryInitial: defaultRetryInitial,
		pacer:        cfg.Pacer,
		client:       &http.Client{Timeout: 60 * time.Second},
	}
}

// ollamaEmbedRequest is the JSON body sent to the Ollama /api/embed endpoint.
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResponse is the JSON body returned from the Ollama /api/embed endpoint.
type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// Embed converts a batch of texts into their corresponding embeddings.
// The returned slice is parallel to the input slice.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: marshal request: %w", err)
	}

	url := e.host + "/api/embed"
	var result ollamaEmbedResponse
	err = withRetry(ctx, e.maxRetries, e.retryInitial, e.pacer, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("ollama embedder: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.client.Do(req)
		if err != nil {
			return fmt.Errorf("ollama embedder: request failed: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("ollama embedder: read response: %w", err)
		}
		result = ollamaEmbedResponse{}
		decodeErr := json.Unmarshal(raw, &result)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			se := &StatusError{
				Backend:    "ollama",
				Code:       resp.StatusCode,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			}
			if decodeErr == nil {
				se.Message = result.Error
			}
			return se
		}
		if decodeErr != nil {
			return permanent(fmt.Errorf("ollama embedder: decode response: %w", decodeErr))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embedder: expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}
	for i, vec := range result.Embeddings {
		if err := checkVector(vec, e.dimensions); err != nil {
			return nil, fmt.Errorf("ollama embedder: embedding %d: %w", i, err)
		}
	}

	return result.Embeddings, nil
}
