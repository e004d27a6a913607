package embed

import (
	"strings"

	"github.com/directory-indexer/directory-indexer/internal/config"
	"github.com/directory-indexer/directory-indexer/internal/errors"
)

// New builds the configured Embedder, wrapped with an LRU query cache, per
// section 6.4's provider polymorphism: the concrete variant is selected
// once at construction time.
func New(cfg config.EmbeddingConfig, cacheSize int) (Embedder, error) {
	var inner Embedder

	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		inner = NewOllamaEmbedder(cfg.Endpoint, cfg.Model)
	case "openai":
		if cfg.APIKey == "" {
			return nil, errors.Config("embedding.api_key is required when embedding.provider is \"openai\"")
		}
		inner = NewOpenAIEmbedder(cfg.Endpoint, cfg.Model, cfg.APIKey)
	default:
		return nil, errors.Config("unknown embedding provider %q", cfg.Provider)
	}

	return NewCachedEmbedder(inner, cacheSize), nil
}
