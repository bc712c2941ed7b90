package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Tejaswini050302/TDS-Project-1/internal/provider"
)

// pingable is any client with a native health call: the Qdrant index, the
// Redis cache, the SQLite store.
type pingable interface {
	Ping(ctx context.Context) error
}

// DependencyPinger adapts a pingable client to the Pinger interface.
type DependencyPinger struct {
	name string
	dep  pingable
}

// NewDependencyPinger labels dep as name in readiness responses.
func NewDependencyPinger(name string, dep pingable) *DependencyPinger {
	return &DependencyPinger{name: name, dep: dep}
}

// Name implements Pinger.
func (p *DependencyPinger) Name() string { return p.name }

// Ping implements Pinger.
func (p *DependencyPinger) Ping(ctx context.Context) error {
	if err := p.dep.Ping(ctx); err != nil {
		return fmt.Errorf("%s: %w", p.name, err)
	}
	return nil
}

// LLMPinger probes the generation backend through its model-listing
// endpoint, which costs no tokens.
type LLMPinger struct {
	cfg    *provider.Config
	client *http.Client
}

// NewLLMPinger returns a pinger for cfg. It returns nil when the backend has
// no cheap health endpoint; callers skip registering it.
func NewLLMPinger(cfg *provider.Config, client *http.Client) *LLMPinger {
	if !cfg.HasHealthCheck() {
		return nil
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &LLMPinger{cfg: cfg, client: client}
}

// Name returns "llm:<backend>".
func (p *LLMPinger) Name() string { return "llm:" + string(p.cfg.Backend) }

// Ping implements Pinger.
func (p *LLMPinger) Ping(ctx context.Context) error {
	return p.cfg.HealthCheck(ctx, p.client)
}
