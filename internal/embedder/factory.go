package embedder

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Tejaswini050302/TDS-Project-1/internal/rag"
)

// Default embedding models per backend.
const (
	defaultOllamaModel = "nomic-embed-text"
	defaultOpenAIModel = "text-embedding-3-small"

	// defaultOllamaDimensions is the output dimension of nomic-embed-text.
	defaultOllamaDimensions = 768
	// defaultOpenAIDimensions is the output dimension of text-embedding-3-small.
	defaultOpenAIDimensions = 1536

	defaultOpenAIBaseURL = "https://api.openai.com/v1"
)

// Backend returns the configured embedding backend name. EMBEDDING_PROVIDER
// wins; otherwise openai.
func Backend() string {
	return getEnvOrDefault("EMBEDDING_PROVIDER", "openai")
}

// DefaultDimensions returns the embedding vector size for the given backend.
// The Qdrant collection is created with this size. EMBEDDING_DIMENSIONS always
// takes precedence when set.
func DefaultDimensions(backend string) int {
	if v := getEnvInt("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	switch backend {
	case "ollama":
		return defaultOllamaDimensions
	default:
		return defaultOpenAIDimensions
	}
}

// Option adjusts the embedder built by NewFromEnv.
type Option func(*options)

type options struct {
	pacer Pacer
}

// WithPacer makes every retry wait on p. Pass the same Throttle that gates
// first attempts.
func WithPacer(p Pacer) Option {
	return func(o *options) { o.pacer = p }
}

// NewFromEnv constructs a rag.Embedder from the environment.
//
// Resolution order:
//
//  1. EMBEDDING_PROVIDER: openai (default), azure, ollama
//  2. EMBEDDING_API_KEY, falling back to OPENAI_API_KEY then AIPIPE_TOKEN
//     (openai) or AZURE_OPENAI_API_KEY (azure)
//  3. EMBEDDING_ENDPOINT, falling back to OPENAI_API_BASE (openai),
//     AZURE_OPENAI_ENDPOINT (azure) or OLLAMA_HOST (ollama)
//  4. EMBEDDING_MODEL overrides the backend default model
//  5. EMBEDDING_DIMENSIONS overrides the default dimensions
//  6. EMBEDDING_MAX_RETRIES enables retries on 5xx (default 0)
func NewFromEnv(opts ...Option) (rag.Embedder, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	backend := Backend()
	dims := DefaultDimensions(backend)
	retries := getEnvInt("EMBEDDING_MAX_RETRIES", defaultMaxRetries)

	switch backend {
	case "ollama":
		host := getEnv("EMBEDDING_ENDPOINT")
		if host == "" {
			host = getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")
		}
		return NewOllamaEmbedder(&OllamaConfig{
			Host:       host,
			Model:      getEnvOrDefault("EMBEDDING_MODEL", defaultOllamaModel),
			Dimensions: dims,
			MaxRetries: retries,
			Pacer:      o.pacer,
		}), nil

	case "openai":
		apiKey := firstEnv("EMBEDDING_API_KEY", "OPENAI_API_KEY", "AIPIPE_TOKEN")
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: openai requires EMBEDDING_API_KEY, OPENAI_API_KEY or AIPIPE_TOKEN")
		}
		baseURL := firstEnv("EMBEDDING_ENDPOINT", "OPENAI_API_BASE")
		if baseURL == "" {
			baseURL = defaultOpenAIBaseURL
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    baseURL,
			APIKey:     apiKey,
			Model:      getEnvOrDefault("EMBEDDING_MODEL", defaultOpenAIModel),
			Dimensions: dims,
			MaxRetries: retries,
			Pacer:      o.pacer,
		}), nil

	case "azure":
		apiKey := firstEnv("EMBEDDING_API_KEY", "AZURE_OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: azure requires AZURE_OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		endpoint := firstEnv("EMBEDDING_ENDPOINT", "AZURE_OPENAI_ENDPOINT")
		if endpoint == "" {
			return nil, fmt.Errorf("embedder: azure requires AZURE_OPENAI_ENDPOINT or EMBEDDING_ENDPOINT")
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    endpoint + "/openai",
			APIKey:     apiKey,
			Model:      getEnvOrDefault("EMBEDDING_MODEL", defaultOpenAIModel),
			Dimensions: dims,
			MaxRetries: retries,
			Pacer:      o.pacer,
			Azure:      true,
			APIVersion: getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2025-04-01-preview"),
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q (valid values: openai, azure, ollama)", backend)
	}
}

// getEnv returns the value of the named environment variable, or empty string.
func getEnv(key string) string {
	return os.Getenv(key)
}

// firstEnv returns the first non-empty value among keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
