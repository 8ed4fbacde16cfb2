package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"hybridrag/config"
	"hybridrag/internal/adapter/cache"
	"hybridrag/internal/adapter/embedding"
	"hybridrag/internal/adapter/lexical"
	"hybridrag/internal/adapter/querylog"
	"hybridrag/internal/adapter/vectorindex"
	"hybridrag/internal/port"
)

// backends bundles the wired adapters every command needs. Close releases
// them in reverse-open order.
type backends struct {
	embedder port.Embedder
	vector   port.VectorIndex
	lexical  port.LexicalIndex
	store    port.CacheStore
	qcache   *cache.QueryCache
	qlog     *querylog.Logger
}

// openBackends constructs the adapters selected by the config. The cache
// backend is chosen once here: Redis when configured and reachable,
// otherwise in-process.
func openBackends(ctx context.Context) (*backends, error) {
	cfg := GetConfig()

	if err := config.EnsureDataDir(rootDir); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	b := &backends{embedder: embedder}

	switch cfg.Vector.Backend {
	case "pgvector":
		b.vector, err = vectorindex.OpenPGVector(cfg.Vector.DSN, cfg.Vector.Table)
	default:
		b.vector, err = vectorindex.OpenBolt(resolvePath(cfg.Vector.Path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}

	switch cfg.Lexical.Backend {
	case "memory":
		b.lexical = lexical.NewMemoryIndex(cfg.Lexical.K1, cfg.Lexical.B)
	default:
		b.lexical, err = lexical.OpenBleve(resolvePath(cfg.Lexical.Path))
		if err != nil {
			b.vector.Close()
			return nil, fmt.Errorf("failed to open lexical index: %w", err)
		}
	}

	b.store = cache.NewStore(ctx, cfg.Cache, logger)
	b.qcache = cache.NewQueryCache(b.store, time.Duration(cfg.Cache.TTLSecs)*time.Second, logger)

	if cfg.Logging.QueryLogPath != "" {
		b.qlog, err = querylog.Open(resolvePath(cfg.Logging.QueryLogPath))
		if err != nil {
			// The audit log is not worth refusing to serve queries over.
			logger.Warn("query log unavailable", "path", cfg.Logging.QueryLogPath, "error", err)
			b.qlog = nil
		}
	}

	return b, nil
}

func (b *backends) Close() {
	if b.qlog != nil {
		if err := b.qlog.Close(); err != nil {
			logger.Warn("failed to close query log", "error", err)
		}
	}
	if b.lexical != nil {
		if err := b.lexical.Close(); err != nil {
			logger.Warn("failed to close lexical index", "error", err)
		}
	}
	if b.vector != nil {
		if err := b.vector.Close(); err != nil {
			logger.Warn("failed to close vector index", "error", err)
		}
	}
}

// resolvePath anchors relative config paths at the root directory.
func resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(rootDir, path)
}
