package provider

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cloudwego/eino/components/model"
)

// ConfigFromEnv resolves the generation configuration from environment
// variables. GENERATION_PROVIDER selects the backend; each backend falls back
// to its native credential variables.
//
// Environment variables:
//
//	GENERATION_PROVIDER  = openai | azure | ollama | gemini | ark (default: openai)
//	GENERATION_MODEL     model name; falls back to OPENAI_MODEL for openai
//	GENERATION_API_KEY   falls back to OPENAI_API_KEY, then AIPIPE_TOKEN (openai)
//	GENERATION_BASE_URL  falls back to OPENAI_API_BASE (openai) or OLLAMA_HOST (ollama)
//
//	Azure:  AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT,
//	        AZURE_OPENAI_API_VERSION (default: 2024-02-01)
//	Gemini: GOOGLE_API_KEY
//	Ark:    ARK_API_KEY
//
//	Shared: GENERATION_MAX_TOKENS (default: 1024), GENERATION_TEMPERATURE (default: 0.2),
//	        GENERATION_TIMEOUT (default: 60s)
func ConfigFromEnv() *Config {
	cfg := &Config{
		Backend:     Backend(getEnvOrDefault("GENERATION_PROVIDER", string(BackendOpenAI))),
		Model:       os.Getenv("GENERATION_MODEL"),
		BaseURL:     os.Getenv("GENERATION_BASE_URL"),
		APIKey:      os.Getenv("GENERATION_API_KEY"),
		MaxTokens:   getEnvInt("GENERATION_MAX_TOKENS", DefaultMaxTokens),
		Temperature: getEnvFloat32("GENERATION_TEMPERATURE", DefaultTemperature),
		Timeout:     getEnvDuration("GENERATION_TIMEOUT", DefaultTimeout),
	}

	switch cfg.Backend {
	case BackendOpenAI:
		cfg.APIKey = firstNonEmpty(cfg.APIKey, os.Getenv("OPENAI_API_KEY"), os.Getenv("AIPIPE_TOKEN"))
		cfg.BaseURL = firstNonEmpty(cfg.BaseURL, os.Getenv("OPENAI_API_BASE"))
		cfg.Model = firstNonEmpty(cfg.Model, os.Getenv("OPENAI_MODEL"), DefaultOpenAIModel)
	case BackendAzure:
		cfg.APIKey = firstNonEmpty(cfg.APIKey, os.Getenv("AZURE_OPENAI_API_KEY"))
		cfg.BaseURL = firstNonEmpty(cfg.BaseURL, os.Getenv("AZURE_OPENAI_ENDPOINT"))
		cfg.AzureDeployment = firstNonEmpty(os.Getenv("AZURE_OPENAI_DEPLOYMENT"), cfg.Model)
		cfg.AzureAPIVersion = getEnvOrDefault("AZURE_OPENAI_API_VERSION", DefaultAzureAPIVersion)
	case BackendOllama:
		cfg.BaseURL = firstNonEmpty(cfg.BaseURL, os.Getenv("OLLAMA_HOST"), DefaultOllamaHost)
		cfg.Model = firstNonEmpty(cfg.Model, DefaultOllamaModel)
	case BackendGemini:
		cfg.APIKey = firstNonEmpty(cfg.APIKey, os.Getenv("GOOGLE_API_KEY"))
		cfg.Model = firstNonEmpty(cfg.Model, DefaultGeminiModel)
	case BackendArk:
		cfg.APIKey = firstNonEmpty(cfg.APIKey, os.Getenv("ARK_API_KEY"))
	}
	return cfg
}

// NewFromEnv constructs a chat model from ConfigFromEnv.
func NewFromEnv(ctx context.Context) (model.BaseChatModel, *Config, error) {
	cfg := ConfigFromEnv()
	m, err := New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return m, cfg, nil
}

// New constructs a chat model from an explicit Config, delegating to the
// backend constructor. It validates the config first so callers get a clear
// error at startup rather than on the first question.
func New(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendOpenAI:
		return newOpenAI(ctx, cfg)
	case BackendAzure:
		return newAzure(ctx, cfg)
	case BackendOllama:
		return newOllama(ctx, cfg)
	case BackendGemini:
		return newGemini(ctx, cfg)
	case BackendArk:
		return newArk(ctx, cfg)
	default:
		return nil, fmt.Errorf("provider: unknown backend %q", cfg.Backend)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
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

// getEnvFloat32 returns the float32 value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}

// getEnvDuration accepts a Go duration ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if s, err := strconv.Atoi(v); err == nil && s > 0 {
		return time.Duration(s) * time.Second
	}
	return fallback
}
