// Package provider constructs the chat-completion model used to synthesise
// answers. The backend is selected at runtime; every backend is an eino
// chat model, so the synthesizer never sees provider-specific types.
// Supported backends: OpenAI-compatible (OpenAI, AIPipe), Azure OpenAI,
// Ollama, Google Gemini and Volcengine Ark.
package provider

import (
	"fmt"
	"strings"
	"time"
)

// Backend enumerates the supported chat-completion providers.
type Backend string

const (
	// BackendOpenAI selects any OpenAI-compatible endpoint. BaseURL points it
	// at a proxy such as AIPipe.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
	// BackendArk selects the Volcengine Ark model runtime.
	BackendArk Backend = "ark"
)

// Defaults applied by ConfigFromEnv.
const (
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultOllamaModel     = "llama3"
	DefaultGeminiModel     = "gemini-1.5-flash"
	DefaultOllamaHost      = "http://localhost:11434"
	DefaultAzureAPIVersion = "2024-02-01"
	DefaultMaxTokens       = 1024
	DefaultTemperature     = float32(0.2)
	DefaultTimeout         = 60 * time.Second
)

// Config holds the generation settings resolved from environment variables
// or supplied by the caller.
type Config struct {
	// Backend identifies which provider to use.
	Backend Backend

	// Model is the model name, or the deployment for Azure.
	Model string

	// BaseURL overrides the provider endpoint. Required for Azure; optional
	// for OpenAI (AIPipe and other proxies) and Ollama.
	BaseURL string

	// APIKey is the credential for the selected provider. Unused by Ollama.
	APIKey string

	// AzureDeployment is the Azure OpenAI deployment name (Azure only).
	AzureDeployment string

	// AzureAPIVersion is the Azure OpenAI REST API version (Azure only).
	AzureAPIVersion string

	// MaxTokens caps the number of tokens generated per answer.
	MaxTokens int

	// Temperature controls response randomness (0.0–1.0).
	Temperature float32

	// Timeout bounds a single answer, retries included.
	Timeout time.Duration
}

// Validate reports the first missing or invalid setting, naming the
// environment variable that supplies it.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOpenAI:
		if c.APIKey == "" {
			return fmt.Errorf("provider: GENERATION_API_KEY (or OPENAI_API_KEY / AIPIPE_TOKEN) is required for openai backend")
		}
		if c.Model == "" {
			return fmt.Errorf("provider: GENERATION_MODEL is required for openai backend")
		}
	case BackendAzure:
		if c.APIKey == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_API_KEY is required for azure backend")
		}
		if c.BaseURL == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_ENDPOINT is required for azure backend")
		}
		if c.AzureDeployment == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_DEPLOYMENT is required for azure backend")
		}
	case BackendOllama:
		if c.Model == "" {
			return fmt.Errorf("provider: GENERATION_MODEL is required for ollama backend")
		}
	case BackendGemini:
		if c.APIKey == "" {
			return fmt.Errorf("provider: GOOGLE_API_KEY is required for gemini backend")
		}
		if c.Model == "" {
			return fmt.Errorf("provider: GENERATION_MODEL is required for gemini backend")
		}
	case BackendArk:
		if c.APIKey == "" {
			return fmt.Errorf("provider: ARK_API_KEY is required for ark backend")
		}
		if c.Model == "" {
			return fmt.Errorf("provider: GENERATION_MODEL (Ark endpoint id) is required for ark backend")
		}
	default:
		return fmt.Errorf("provider: unknown backend %q (valid: openai, azure, ollama, gemini, ark)", c.Backend)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("provider: GENERATION_MAX_TOKENS must be positive, got %d", c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("provider: GENERATION_TEMPERATURE must be in [0, 2], got %v", c.Temperature)
	}
	return nil
}

// ModelName returns the name reported in logs and metrics.
func (c *Config) ModelName() string {
	if c.Backend == BackendAzure {
		return c.AzureDeployment
	}
	return c.Model
}

// isAzureReasoningModel reports whether an Azure deployment is an o-series or
// codex reasoning model, which rejects temperature and max_tokens.
func isAzureReasoningModel(deployment string) bool {
	d := strings.ToLower(deployment)
	for _, p := range []string{"o1", "o3", "o4", "codex"} {
		if strings.HasPrefix(d, p) {
			return true
		}
	}
	return false
}
