// Package config provides YAML-based configuration for tdsta.
// Configuration is loaded with a layered precedence: defaults → YAML file → env vars.
// Environment variables always win, so a deployment can override any key.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. TDSTA_CONFIG environment variable
//  3. ~/.tdsta/config.yaml
//  4. ./tdsta.yaml
//
// If no file is found the system runs entirely from env vars.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Generation configures the chat model that writes answers.
	Generation GenerationConfig `yaml:"generation"`

	// Embedding configures the embedding provider.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Qdrant configures the search engine connection.
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Retrieval configures how questions are matched.
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Chunking configures the corpus splitter.
	Chunking ChunkingConfig `yaml:"chunking"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Store configures the SQLite checkpoint and query log.
	Store StoreConfig `yaml:"store"`

	// Cache configures the Redis answer cache.
	Cache CacheConfig `yaml:"cache"`

	// Tracing configures Langfuse tracing integration.
	Tracing TracingConfig `yaml:"tracing"`
}

// GenerationConfig holds chat model settings.
type GenerationConfig struct {
	// Provider selects the backend: openai, azure, ollama, gemini, ark.
	Provider string `yaml:"provider"`
	// Model is the model name (the deployment for Azure).
	Model string `yaml:"model"`
	// BaseURL points an OpenAI-compatible client at a proxy such as AIPipe.
	BaseURL string `yaml:"base_url"`
	// APIKey is the credential. Prefer env var GENERATION_API_KEY.
	APIKey string `yaml:"api_key"`
	// MaxTokens caps the answer length.
	MaxTokens int `yaml:"max_tokens"`
	// MaxContextTokens is the prompt budget for retrieved contexts.
	MaxContextTokens int `yaml:"max_context_tokens"`
	// Temperature controls response randomness.
	Temperature float32 `yaml:"temperature"`
	// Timeout bounds one answer, retries included.
	Timeout time.Duration `yaml:"timeout"`
	// Azure holds Azure OpenAI-specific settings.
	Azure AzureConfig `yaml:"azure"`
}

// AzureConfig holds Azure OpenAI provider settings.
type AzureConfig struct {
	// Endpoint is the Azure OpenAI resource endpoint.
	Endpoint string `yaml:"endpoint"`
	// Deployment is the Azure OpenAI deployment name.
	Deployment string `yaml:"deployment"`
	// APIVersion is the Azure OpenAI API version.
	APIVersion string `yaml:"api_version"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the embedding backend (openai, azure, ollama).
	Provider string `yaml:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the embedding API endpoint.
	Endpoint string `yaml:"endpoint"`
	// Interval is the minimum spacing between embedding calls.
	Interval time.Duration `yaml:"interval"`
	// ProgressEvery is the progress logging cadence.
	ProgressEvery int `yaml:"progress_every"`
	// MaxRetries enables paced retries on 5xx. Zero keeps them off.
	MaxRetries int `yaml:"max_retries"`
}

// QdrantConfig holds search engine settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// Collection is the collection name.
	Collection string `yaml:"collection"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// RetrievalConfig holds question matching settings.
type RetrievalConfig struct {
	// Mode is lexical or hybrid.
	Mode string `yaml:"mode"`
	// TopK is the number of hits per question.
	TopK int `yaml:"top_k"`
	// Timeout bounds one search.
	Timeout time.Duration `yaml:"timeout"`
}

// ChunkingConfig holds splitter settings.
type ChunkingConfig struct {
	// Size is the word window size for course pages.
	Size int `yaml:"size"`
	// Overlap is the number of words shared by consecutive windows.
	Overlap int `yaml:"overlap"`
	// DiscourseMaxChars bounds a forum chunk.
	DiscourseMaxChars int `yaml:"discourse_max_chars"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for the question routes. Prefer env var TDSTA_API_KEY.
	APIKey string `yaml:"api_key"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// StoreConfig holds the SQLite settings.
type StoreConfig struct {
	// DBPath is the SQLite database path. Set to "disabled" to disable.
	DBPath string `yaml:"db_path"`
}

// CacheConfig holds the Redis answer cache settings.
type CacheConfig struct {
	// Addr is host:port; empty disables the cache.
	Addr string `yaml:"addr"`
	// Password is the Redis password. Prefer env var REDIS_PASSWORD.
	Password string `yaml:"password"`
	// TTL is the lifetime of a cached answer.
	TTL time.Duration `yaml:"ttl"`
}

// TracingConfig holds Langfuse tracing settings.
type TracingConfig struct {
	// PublicKey is the Langfuse public key. Prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key"`
	// SecretKey is the Langfuse secret key. Prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key"`
	// Host is the Langfuse API host.
	Host string `yaml:"host"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"GENERATION_PROVIDER", func(c *Config) string { return c.Generation.Provider }},
	{"GENERATION_MODEL", func(c *Config) string { return c.Generation.Model }},
	{"GENERATION_BASE_URL", func(c *Config) string { return c.Generation.BaseURL }},
	{"GENERATION_API_KEY", func(c *Config) string { return c.Generation.APIKey }},
	{"GENERATION_MAX_TOKENS", func(c *Config) string { return intStr(c.Generation.MaxTokens) }},
	{"GENERATION_MAX_CONTEXT_TOKENS", func(c *Config) string { return intStr(c.Generation.MaxContextTokens) }},
	{"GENERATION_TEMPERATURE", func(c *Config) string { return float32Str(c.Generation.Temperature) }},
	{"GENERATION_TIMEOUT", func(c *Config) string { return durationStr(c.Generation.Timeout) }},
	{"AZURE_OPENAI_ENDPOINT", func(c *Config) string { return c.Generation.Azure.Endpoint }},
	{"AZURE_OPENAI_DEPLOYMENT", func(c *Config) string { return c.Generation.Azure.Deployment }},
	{"AZURE_OPENAI_API_VERSION", func(c *Config) string { return c.Generation.Azure.APIVersion }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"EMBED_INTERVAL", func(c *Config) string { return durationStr(c.Embedding.Interval) }},
	{"EMBED_PROGRESS_EVERY", func(c *Config) string { return intStr(c.Embedding.ProgressEvery) }},
	{"EMBEDDING_MAX_RETRIES", func(c *Config) string { return intStr(c.Embedding.MaxRetries) }},
	{"QDRANT_HOST", func(c *Config) string { return c.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Qdrant.Port) }},
	{"QDRANT_COLLECTION", func(c *Config) string { return c.Qdrant.Collection }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Qdrant.TLS) }},
	{"RETRIEVAL_MODE", func(c *Config) string { return c.Retrieval.Mode }},
	{"RETRIEVAL_TOP_K", func(c *Config) string { return intStr(c.Retrieval.TopK) }},
	{"RETRIEVAL_TIMEOUT", func(c *Config) string { return durationStr(c.Retrieval.Timeout) }},
	{"CHUNK_SIZE", func(c *Config) string { return intStr(c.Chunking.Size) }},
	{"CHUNK_OVERLAP", func(c *Config) string { return intStr(c.Chunking.Overlap) }},
	{"DISCOURSE_MAX_CHARS", func(c *Config) string { return intStr(c.Chunking.DiscourseMaxChars) }},
	{"TDSTA_HOST", func(c *Config) string { return c.Server.Host }},
	{"TDSTA_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"TDSTA_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"TDSTA_DB", func(c *Config) string { return c.Store.DBPath }},
	{"REDIS_ADDR", func(c *Config) string { return c.Cache.Addr }},
	{"REDIS_PASSWORD", func(c *Config) string { return c.Cache.Password }},
	{"ANSWER_CACHE_TTL", func(c *Config) string { return durationStr(c.Cache.TTL) }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *Config) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *Config) string { return c.Tracing.Host }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
// An explicit path that does not exist is an error.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path, err := resolveConfigPath(explicitPath)
	if err != nil {
		return "", err
	}
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue
		}
		if err := os.Setenv(m.envKey, yamlVal); err != nil {
			return "", fmt.Errorf("config: set %s: %w", m.envKey, err)
		}
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config: --config %s: %w", explicit, err)
		}
		return explicit, nil
	}

	if envPath := os.Getenv("TDSTA_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".tdsta", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	if _, err := os.Stat("tdsta.yaml"); err == nil {
		return "tdsta.yaml", nil
	}

	return "", nil
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// float32Str converts a float32 to string, returning "" for zero values.
func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// durationStr converts a duration to Go syntax, returning "" for zero.
func durationStr(v time.Duration) string {
	if v == 0 {
		return ""
	}
	return v.String()
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
