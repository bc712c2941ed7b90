package provider

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	base := func(b Backend) Config {
		return Config{Backend: b, MaxTokens: DefaultMaxTokens, Temperature: DefaultTemperature}
	}
	with := func(c Config, f func(*Config)) Config { f(&c); return c }

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		// ── OpenAI ────────────────────────────────────────────────────────────
		{
			name: "openai/valid",
			cfg:  with(base(BackendOpenAI), func(c *Config) { c.APIKey = "sk-test"; c.Model = "gpt-4o-mini" }),
		},
		{
			name:    "openai/missing api key",
			cfg:     with(base(BackendOpenAI), func(c *Config) { c.Model = "gpt-4o-mini" }),
			wantErr: "GENERATION_API_KEY",
		},
		{
			name:    "openai/missing model",
			cfg:     with(base(BackendOpenAI), func(c *Config) { c.APIKey = "sk-test" }),
			wantErr: "GENERATION_MODEL",
		},

		// ── Azure ─────────────────────────────────────────────────────────────
		{
			name: "azure/valid",
			cfg: with(base(BackendAzure), func(c *Config) {
				c.APIKey = "key"
				c.BaseURL = "https://my.openai.azure.com"
				c.AzureDeployment = "gpt-4o"
			}),
		},
		{
			name: "azure/missing endpoint",
			cfg: with(base(BackendAzure), func(c *Config) {
				c.APIKey = "key"
				c.AzureDeployment = "gpt-4o"
			}),
			wantErr: "AZURE_OPENAI_ENDPOINT",
		},
		{
			name: "azure/missing deployment",
			cfg: with(base(BackendAzure), func(c *Config) {
				c.APIKey = "key"
				c.BaseURL = "https://my.openai.azure.com"
			}),
			wantErr: "AZURE_OPENAI_DEPLOYMENT",
		},

		// ── Ollama / Gemini / Ark ─────────────────────────────────────────────
		{
			name: "ollama/valid without key",
			cfg:  with(base(BackendOllama), func(c *Config) { c.Model = "llama3" }),
		},
		{
			name:    "gemini/missing key",
			cfg:     with(base(BackendGemini), func(c *Config) { c.Model = "gemini-1.5-flash" }),
			wantErr: "GOOGLE_API_KEY",
		},
		{
			name:    "ark/missing model",
			cfg:     with(base(BackendArk), func(c *Config) { c.APIKey = "k" }),
			wantErr: "Ark endpoint id",
		},

		// ── Shared ────────────────────────────────────────────────────────────
		{
			name:    "unknown backend",
			cfg:     base("bedrock"),
			wantErr: "unknown backend",
		},
		{
			name: "zero max tokens",
			cfg: with(base(BackendOllama), func(c *Config) {
				c.Model = "llama3"
				c.MaxTokens = 0
			}),
			wantErr: "GENERATION_MAX_TOKENS",
		},
		{
			name: "temperature out of range",
			cfg: with(base(BackendOllama), func(c *Config) {
				c.Model = "llama3"
				c.Temperature = 3
			}),
			wantErr: "GENERATION_TEMPERATURE",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestConfigFromEnv_OpenAIFallbacks(t *testing.T) {
	for _, k := range []string{"GENERATION_PROVIDER", "GENERATION_MODEL", "GENERATION_API_KEY",
		"GENERATION_BASE_URL", "OPENAI_API_KEY", "OPENAI_MODEL", "GENERATION_TIMEOUT"} {
		t.Setenv(k, "")
	}
	t.Setenv("AIPIPE_TOKEN", "pipe-token")
	t.Setenv("OPENAI_API_BASE", "https://aipipe.org/openai/v1")
	t.Setenv("GENERATION_TIMEOUT", "45")

	cfg := ConfigFromEnv()
	if cfg.Backend != BackendOpenAI {
		t.Errorf("Backend = %q, want openai", cfg.Backend)
	}
	if cfg.APIKey != "pipe-token" {
		t.Errorf("APIKey = %q, want AIPIPE_TOKEN fallback", cfg.APIKey)
	}
	if cfg.BaseURL != "https://aipipe.org/openai/v1" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Model != DefaultOpenAIModel {
		t.Errorf("Model = %q, want %q", cfg.Model, DefaultOpenAIModel)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", cfg.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestConfigFromEnv_ExplicitKeyWins(t *testing.T) {
	t.Setenv("GENERATION_PROVIDER", "openai")
	t.Setenv("GENERATION_API_KEY", "explicit")
	t.Setenv("OPENAI_API_KEY", "openai")
	t.Setenv("AIPIPE_TOKEN", "pipe")

	if got := ConfigFromEnv().APIKey; got != "explicit" {
		t.Errorf("APIKey = %q, want explicit", got)
	}
}

func TestConfigFromEnv_AzureDeploymentFromModel(t *testing.T) {
	t.Setenv("GENERATION_PROVIDER", "azure")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT", "")
	t.Setenv("AZURE_OPENAI_API_VERSION", "")
	t.Setenv("GENERATION_MODEL", "gpt-4.1")

	cfg := ConfigFromEnv()
	if cfg.AzureDeployment != "gpt-4.1" || cfg.ModelName() != "gpt-4.1" {
		t.Errorf("deployment = %q, ModelName = %q", cfg.AzureDeployment, cfg.ModelName())
	}
	if cfg.AzureAPIVersion != DefaultAzureAPIVersion {
		t.Errorf("AzureAPIVersion = %q", cfg.AzureAPIVersion)
	}
}

func TestIsAzureReasoningModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		deployment string
		want       bool
	}{
		// known o-series: should be detected
		{"o1", true},
		{"o1-preview", true},
		{"o1-mini", true},
		{"o3", true},
		{"o3-mini", true},
		{"o3-pro", true},
		{"o4-mini", true},
		{"O1-PREVIEW", true}, // case-insensitive
		{"O3-Mini", true},    // case-insensitive
		// codex-class: should be detected
		{"codex-mini", true},
		{"codex", true},
		{"gpt-5.2-codex", false}, // "codex" not at start: not matched by prefix rule
		// standard models: should NOT be detected
		{"gpt-4o", false},
		{"gpt-4o-mini", false},
		{"gpt-4", false},
		{"gpt-4.1", false},
		{"gpt-35-turbo", false},
		{"my-custom-deployment", false},
		{"", false},
	}

	for _, tc := range tests {
		t.Run(tc.deployment, func(t *testing.T) {
			t.Parallel()
			got := isAzureReasoningModel(tc.deployment)
			if got != tc.want {
				t.Errorf("isAzureReasoningModel(%q) = %v, want %v", tc.deployment, got, tc.want)
			}
		})
	}
}
