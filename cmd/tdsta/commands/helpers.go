package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Tejaswini050302/TDS-Project-1/internal/cache"
	"github.com/Tejaswini050302/TDS-Project-1/internal/embedder"
	"github.com/Tejaswini050302/TDS-Project-1/internal/provider"
	"github.com/Tejaswini050302/TDS-Project-1/internal/qa"
	"github.com/Tejaswini050302/TDS-Project-1/internal/rag"
	"github.com/Tejaswini050302/TDS-Project-1/internal/store"
	"github.com/Tejaswini050302/TDS-Project-1/internal/synth"
)

const (
	defaultCollection    = "tds_chunks"
	defaultTypoTolerance = 2
)

// openStore opens the SQLite store named by TDSTA_DB, or the default path.
// It returns nil, nil when the store is disabled.
func openStore(log *slog.Logger) (*store.SQLiteStore, error) {
	path := os.Getenv("TDSTA_DB")
	if path == store.Disabled {
		log.Info("store: disabled via TDSTA_DB=disabled")
		return nil, nil
	}
	if path == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	log.Info("store: opened", slog.String("path", path))
	return s, nil
}

// newQdrantIndex builds the search collection client from QDRANT_* env vars.
// The vector size follows the configured embedding backend.
func newQdrantIndex(log *slog.Logger) (*rag.QdrantIndex, error) {
	cfg := &rag.QdrantConfig{
		Host:          getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:          getEnvInt("QDRANT_PORT", 6334),
		Collection:    getEnvOrDefault("QDRANT_COLLECTION", defaultCollection),
		VectorSize:    uint64(embedder.DefaultDimensions(embedder.Backend())), //nolint:gosec // dimensions are bounded
		APIKey:        os.Getenv("QDRANT_API_KEY"),
		UseTLS:        strings.EqualFold(os.Getenv("QDRANT_TLS"), "true"),
		TypoTolerance: getEnvInt("LEXICAL_TYPO_TOLERANCE", defaultTypoTolerance),
	}
	index, err := rag.NewQdrantIndex(cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info("qdrant: client ready",
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.String("collection", cfg.Collection),
	)
	return index, nil
}

// answerStack is everything a question needs, built once per process.
type answerStack struct {
	service     *qa.Service
	index       *rag.QdrantIndex
	providerCfg *provider.Config
	cache       *cache.RedisCache
	store       *store.SQLiteStore
	closers     []func()
}

// Close releases the stack's clients in reverse order.
func (a *answerStack) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildAnswerStack wires the retriever, synthesizer, optional cache and
// optional query log into a qa.Service. Optional collaborators that fail to
// open are logged and left out.
func buildAnswerStack(ctx context.Context, log *slog.Logger, topK int) (*answerStack, error) {
	st := &answerStack{}
	ok := false
	defer func() {
		if !ok {
			st.Close()
		}
	}()

	index, err := newQdrantIndex(log)
	if err != nil {
		return nil, fmt.Errorf("qdrant: %w", err)
	}
	st.index = index
	st.closers = append(st.closers, func() { _ = index.Close() })

	mode := getEnvOrDefault("RETRIEVAL_MODE", rag.ModeLexical)
	var queryEmbedder rag.Embedder
	if mode == rag.ModeHybrid {
		if err := embedder.Validate(log); err != nil {
			return nil, fmt.Errorf("hybrid retrieval: %w", err)
		}
		if queryEmbedder, err = embedder.NewFromEnv(); err != nil {
			return nil, fmt.Errorf("hybrid retrieval: %w", err)
		}
	}
	retriever, err := rag.NewRetriever(rag.RetrieverConfig{
		Searcher:    index,
		Embedder:    queryEmbedder,
		Mode:        mode,
		DefaultTopK: getEnvInt("RETRIEVAL_TOP_K", rag.DefaultTopK),
		Timeout:     getEnvDuration("RETRIEVAL_TIMEOUT", rag.DefaultTimeout),
		Log:         log,
	})
	if err != nil {
		return nil, err
	}

	chatModel, providerCfg, err := provider.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	st.providerCfg = providerCfg
	log.Info("provider initialised",
		slog.String("provider", string(providerCfg.Backend)),
		slog.String("model", providerCfg.ModelName()),
	)

	synthesizer, err := synth.New(ctx, synth.Config{
		Model:            chatModel,
		ModelName:        providerCfg.ModelName(),
		MaxContextTokens: getEnvInt("GENERATION_MAX_CONTEXT_TOKENS", 0),
		Timeout:          getEnvDuration("GENERATION_TIMEOUT", synth.DefaultTimeout),
		Log:              log,
	})
	if err != nil {
		return nil, err
	}

	svcCfg := qa.Config{
		Retriever:   retriever,
		Synthesizer: synthesizer,
		TopK:        topK,
	}

	if cacheCfg := answerCacheConfig(); cacheCfg.Enabled() {
		c, cErr := cache.New(ctx, cacheCfg)
		if cErr != nil {
			log.Warn("cache: redis unavailable, answering without cache", slog.Any("error", cErr))
		} else {
			st.cache = c
			svcCfg.Cache = c
			st.closers = append(st.closers, func() { _ = c.Close() })
			log.Info("cache: redis connected",
				slog.String("addr", cacheCfg.Addr),
				slog.String("namespace", cacheCfg.Namespace),
				slog.Duration("ttl", cacheCfg.TTL),
			)
		}
	}

	s, err := openStore(log)
	if err != nil {
		log.Warn("store: failed to open, query log disabled", slog.Any("error", err))
	} else if s != nil {
		st.store = s
		svcCfg.QueryLog = s
		st.closers = append(st.closers, func() { _ = s.Close() })
	}

	svc, err := qa.NewService(svcCfg)
	if err != nil {
		return nil, err
	}
	st.service = svc
	ok = true
	return st, nil
}

// answerCacheConfig scopes the answer cache to the configured collection.
func answerCacheConfig() cache.Config {
	cfg := cache.ConfigFromEnv()
	cfg.Namespace = getEnvOrDefault("QDRANT_COLLECTION", defaultCollection)
	return cfg
}

// invalidateAnswerCache starts a new cache generation after a reindex. A
// missing or unreachable Redis only warrants a warning.
func invalidateAnswerCache(ctx context.Context, log *slog.Logger) {
	cfg := answerCacheConfig()
	if !cfg.Enabled() {
		return
	}
	c, err := cache.New(ctx, cfg)
	if err != nil {
		log.Warn("cache: redis unavailable, cached answers expire by TTL only", slog.Any("error", err))
		return
	}
	defer func() { _ = c.Close() }()

	gen, err := c.Invalidate(ctx)
	if err != nil {
		log.Warn("cache: failed to invalidate answers", slog.Any("error", err))
		return
	}
	log.Info("cache: answers invalidated", slog.String("namespace", cfg.Namespace), slog.Int64("generation", gen))
}

// getEnvOrDefault returns the value of the environment variable key, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of key, or fallback when unset or
// unparseable.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go duration syntax ("1500ms") or whole seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
