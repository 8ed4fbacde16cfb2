package embedding

import (
	"fmt"

	"hybridrag/config"
	"hybridrag/internal/port"
)

// New selects the embedding provider from configuration. Selection happens
// once at startup; callers hold only the port.Embedder.
func New(cfg config.EmbeddingConfig) (port.Embedder, error) {
	switch cfg.Provider {
	case "", "hash":
		return NewHashEmbedder(cfg.Dimension), nil
	case "openai":
		if cfg.BaseURL != "" {
			return NewOpenAICompatibleEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL)
		}
		return NewOpenAIEmbedder(cfg.APIKeyEnv, cfg.Model)
	case "ollama":
		return NewOllamaEmbedder(cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
