package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the retrieval service.
type Config struct {
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Lexical   LexicalConfig   `yaml:"lexical"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ChunkingConfig holds default chunking parameters; per-request parameters
// override them.
type ChunkingConfig struct {
	Strategy string `yaml:"strategy"` // "char" or "sentence"
	Size     int    `yaml:"size"`
	Overlap  int    `yaml:"overlap"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "hash", "openai", "ollama"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"`
	Metric    string `yaml:"metric"` // "ip", "cosine", "l2"
}

// VectorConfig selects and configures the vector index backend.
type VectorConfig struct {
	Backend string `yaml:"backend"` // "bolt" or "pgvector"
	Path    string `yaml:"path"`    // bolt file path
	DSN     string `yaml:"dsn"`     // postgres connection string
	Table   string `yaml:"table"`   // pgvector table name
}

// LexicalConfig selects and configures the lexical index backend.
type LexicalConfig struct {
	Backend string  `yaml:"backend"` // "bleve" or "memory"
	Path    string  `yaml:"path"`    // bleve index directory
	K1      float64 `yaml:"k1"`      // memory backend BM25 params
	B       float64 `yaml:"b"`
}

// IngestConfig holds ingestion pipeline configuration.
type IngestConfig struct {
	BatchSize    int      `yaml:"batch_size"`
	Dedup        bool     `yaml:"dedup"`
	DedupTTLSecs int      `yaml:"dedup_ttl_secs"`
	Includes     []string `yaml:"includes"` // directory ingestion globs
	Excludes     []string `yaml:"excludes"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK           int     `yaml:"top_k"`
	PageSize       int     `yaml:"page_size"`
	RRFK           int     `yaml:"rrf_k"`
	PoolMultiplier int     `yaml:"pool_multiplier"` // candidate pool = multiplier * top_k
	LegTimeoutMS   int     `yaml:"leg_timeout_ms"`  // per-signal search deadline
	RerankAlpha    float64 `yaml:"rerank_alpha"`    // query-text cosine weight
	RerankBeta     float64 `yaml:"rerank_beta"`     // lexical score weight
	RerankGamma    float64 `yaml:"rerank_gamma"`    // vector score weight
	RerankDelta    float64 `yaml:"rerank_delta"`    // fused score weight
}

// CacheConfig holds query cache configuration. When RedisAddr is set and
// reachable at startup the shared store is used; otherwise the in-process
// store with the same TTL semantics takes over.
type CacheConfig struct {
	TTLSecs       int    `yaml:"ttl_secs"`
	MaxEntries    int    `yaml:"max_entries"` // in-process store capacity
	RedisAddr     string `yaml:"redis_addr"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPassword string `yaml:"redis_password"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level        string `yaml:"level"`
	QueryLogPath string `yaml:"query_log_path"` // sqlite query audit log
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			Strategy: "sentence",
			Size:     800,
			Overlap:  100,
		},
		Embedding: EmbeddingConfig{
			Provider:  "hash",
			Model:     "hash-768",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 768,
			Metric:    "cosine",
		},
		Vector: VectorConfig{
			Backend: "bolt",
			Path:    ".hybridrag/vectors.db",
			Table:   "rag_chunks",
		},
		Lexical: LexicalConfig{
			Backend: "bleve",
			Path:    ".hybridrag/lexical.bleve",
			K1:      1.2,
			B:       0.75,
		},
		Ingest: IngestConfig{
			BatchSize:    2000,
			Dedup:        true,
			DedupTTLSecs: 24 * 3600,
			Includes:     []string{"**/*.txt", "**/*.md"},
			Excludes:     []string{"**/node_modules/**", "**/.git/**"},
		},
		Retrieve: RetrieveConfig{
			TopK:           5,
			PageSize:       10,
			RRFK:           60,
			PoolMultiplier: 4,
			LegTimeoutMS:   2000,
			RerankAlpha:    1.0,
			RerankBeta:     0.2,
			RerankGamma:    0.2,
			RerankDelta:    0.3,
		},
		Cache: CacheConfig{
			TTLSecs:    30,
			MaxEntries: 1024,
		},
		Logging: LoggingConfig{
			Level:        "info",
			QueryLogPath: ".hybridrag/query_logs.db",
		},
	}
}

// Load loads configuration from a YAML file, layered over defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for hybridrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "hybridrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".hybridrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EnsureDataDir ensures the .hybridrag data directory exists under dir.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".hybridrag"), 0755)
}
