// Package cache stores generated answers in Redis, keyed by a hash of the
// normalised question, so repeated questions skip retrieval and generation.
// Keys are scoped to a collection and its index generation: every reindex
// bumps the generation, which orphans answers built from the old corpus.
//
// Environment variables:
//
//	REDIS_ADDR        host:port; the cache is disabled when empty
//	REDIS_PASSWORD    optional
//	ANSWER_CACHE_TTL  entry lifetime (default: 1h)
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Tejaswini050302/TDS-Project-1/internal/corpus"
)

const (
	// DefaultTTL is the lifetime of a cached answer.
	DefaultTTL = time.Hour
	// DefaultNamespace scopes keys when no collection is configured.
	DefaultNamespace = "default"

	keyPrefix        = "tdsta:answer:"
	generationPrefix = "tdsta:generation:"
)

// Cache is the answer cache used by the query service.
type Cache interface {
	// Get returns the cached answer for question. ok is false on a miss.
	Get(ctx context.Context, question string) (ans corpus.Answer, ok bool, err error)
	// Set stores ans for question.
	Set(ctx context.Context, question string, ans corpus.Answer) error
}

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	TTL      time.Duration
	// Namespace is the search collection the cached answers were built from.
	Namespace string
}

// ConfigFromEnv reads REDIS_ADDR, REDIS_PASSWORD and ANSWER_CACHE_TTL.
func ConfigFromEnv() Config {
	return Config{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		TTL:      getEnvDuration("ANSWER_CACHE_TTL", DefaultTTL),
	}
}

// Enabled reports whether an address is configured.
func (c Config) Enabled() bool { return c.Addr != "" }

// RedisCache implements Cache on a go-redis client.
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	namespace string
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, cfg Config) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("cache: REDIS_ADDR is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	client := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping %s: %w", cfg.Addr, err)
	}
	return &RedisCache{client: client, ttl: cfg.TTL, namespace: cfg.Namespace}, nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, question string) (corpus.Answer, bool, error) {
	var ans corpus.Answer
	key, err := c.key(ctx, question)
	if err != nil {
		return ans, false, err
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ans, false, nil
	}
	if err != nil {
		return ans, false, fmt.Errorf("cache: get: %w", err)
	}
	if err := json.Unmarshal(raw, &ans); err != nil {
		return ans, false, fmt.Errorf("cache: decode entry: %w", err)
	}
	if ans.Links == nil {
		ans.Links = []corpus.Link{}
	}
	return ans, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, question string, ans corpus.Answer) error {
	raw, err := json.Marshal(ans)
	if err != nil {
		return fmt.Errorf("cache: encode entry: %w", err)
	}
	key, err := c.key(ctx, question)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set: %w", err)
	}
	return nil
}

// Invalidate starts a new generation for the namespace, so every answer
// cached before it is no longer found. It returns the new generation.
func (c *RedisCache) Invalidate(ctx context.Context) (int64, error) {
	gen, err := c.client.Incr(ctx, generationPrefix+c.namespace).Result()
	if err != nil {
		return 0, fmt.Errorf("cache: bump generation: %w", err)
	}
	return gen, nil
}

// key resolves the current generation and builds the entry key.
func (c *RedisCache) key(ctx context.Context, question string) (string, error) {
	gen, err := c.client.Get(ctx, generationPrefix+c.namespace).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("cache: read generation: %w", err)
	}
	return Key(c.namespace+":"+strconv.FormatInt(gen, 10), question), nil
}

// Ping implements the server's readiness probe.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache: ping: %w", err)
	}
	return nil
}

// Close releases the client.
func (c *RedisCache) Close() error { return c.client.Close() }

// Key returns the Redis key for question within scope: case and runs of
// whitespace in the question do not change it.
func Key(scope, question string) string {
	sum := sha256.Sum256([]byte(Normalize(question)))
	return keyPrefix + scope + ":" + hex.EncodeToString(sum[:])
}

// Normalize lower-cases question and collapses whitespace.
func Normalize(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(question)), " ")
}

// getEnvDuration accepts a Go duration ("30m") or a bare number of seconds.
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
