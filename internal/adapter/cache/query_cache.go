package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"hybridrag/config"
	"hybridrag/internal/domain"
	"hybridrag/internal/port"
)

// Key derives the cache key from every query-affecting parameter. Changing
// any of them changes the key. Query text stays case-sensitive to preserve
// the user's input semantics.
func Key(query string, hybrid, rerank bool, topK, page, pageSize int) string {
	raw := fmt.Sprintf("%s|%t|%t|%d|%d|%d", query, hybrid, rerank, topK, page, pageSize)
	digest := sha256.Sum256([]byte(raw))
	return "qcache:" + hex.EncodeToString(digest[:16])
}

// ChunkKey keys ingest-time chunk dedup by content hash.
func ChunkKey(text string) string {
	digest := sha256.Sum256([]byte(text))
	return "chunk:" + hex.EncodeToString(digest[:16])
}

// QueryCache memoizes query results on a pluggable store. Debug responses
// bypass it entirely; degraded and empty responses are never written (a
// cached outage would outlive the outage).
type QueryCache struct {
	store  port.CacheStore
	ttl    time.Duration
	logger *slog.Logger
}

// NewQueryCache wraps a store with the result TTL.
func NewQueryCache(store port.CacheStore, ttl time.Duration, logger *slog.Logger) *QueryCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryCache{store: store, ttl: ttl, logger: logger}
}

// Get returns a cached result, or nil on miss. Store errors degrade to a
// miss; the cache is never allowed to fail a query.
func (c *QueryCache) Get(ctx context.Context, key string) *domain.QueryResult {
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("query cache get failed", "key", key, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var res domain.QueryResult
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Warn("query cache entry corrupt", "key", key, "error", err)
		return nil
	}
	return &res
}

// Put stores a result unless it is degraded or empty.
func (c *QueryCache) Put(ctx context.Context, key string, res *domain.QueryResult) {
	if res == nil || res.Degraded || len(res.Results) == 0 {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		c.logger.Warn("query cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("query cache set failed", "key", key, "error", err)
	}
}

// Store exposes the backing store, e.g. for ingest-time chunk dedup.
func (c *QueryCache) Store() port.CacheStore { return c.store }

// TTL returns the configured entry lifetime.
func (c *QueryCache) TTL() time.Duration { return c.ttl }

// NewStore picks the cache backend at startup: Redis when configured and
// reachable, otherwise the in-process store with identical TTL semantics.
func NewStore(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) port.CacheStore {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RedisAddr != "" {
		store, err := NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			logger.Info("query cache using redis", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
			return store
		}
		logger.Warn("redis unavailable, falling back to in-process cache", "addr", cfg.RedisAddr, "error", err)
	}
	return NewMemoryStore(cfg.MaxEntries)
}
