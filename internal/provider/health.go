package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	geminiModelsURL      = "https://generativelanguage.googleapis.com/v1beta/models"
)

// HasHealthCheck reports whether the backend exposes a model-listing
// endpoint usable as a zero-cost probe. Ark does not.
func (c *Config) HasHealthCheck() bool {
	switch c.Backend {
	case BackendOpenAI, BackendAzure, BackendOllama, BackendGemini:
		return true
	default:
		return false
	}
}

// HealthCheck lists models on the backend without generating tokens. Any
// 2xx response is healthy.
func (c *Config) HealthCheck(ctx context.Context, client *http.Client) error {
	req, err := c.healthRequest(ctx)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("provider: %s health check: %w", c.Backend, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("provider: %s health check: HTTP %d", c.Backend, resp.StatusCode)
	}
	return nil
}

func (c *Config) healthRequest(ctx context.Context) (*http.Request, error) {
	var (
		target string
		header = http.Header{}
	)
	switch c.Backend {
	case BackendOpenAI:
		base := c.BaseURL
		if base == "" {
			base = defaultOpenAIBaseURL
		}
		target = strings.TrimRight(base, "/") + "/models"
		header.Set("Authorization", "Bearer "+c.APIKey)
	case BackendAzure:
		target = strings.TrimRight(c.BaseURL, "/") + "/openai/models?api-version=" + url.QueryEscape(c.AzureAPIVersion)
		header.Set("api-key", c.APIKey)
	case BackendOllama:
		base := c.BaseURL
		if base == "" {
			base = DefaultOllamaHost
		}
		target = strings.TrimRight(base, "/") + "/api/tags"
	case BackendGemini:
		target = geminiModelsURL
		header.Set("x-goog-api-key", c.APIKey)
	default:
		return nil, fmt.Errorf("provider: no health check for backend %q", c.Backend)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("provider: build health request: %w", err)
	}
	req.Header = header
	return req, nil
}
