// Package embed provides the pluggable embedding-provider client described
// in section 6.4: a common Embedder interface with Ollama and OpenAI
// implementations, a known-dimension table, retry, and an LRU query cache.
package embed

import (
	"context"
	"time"
)

// Embedder generates vector embeddings for text. Implementations are
// selected at configuration time; no dynamic dispatch happens past
// construction.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch generates embeddings for multiple texts in one round trip
	// where the provider supports it.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the embedding vector length this provider produces.
	Dimensions() int
	// ModelName returns the configured model identifier.
	ModelName() string
	// HealthCheck reports whether the provider is reachable and ready.
	HealthCheck(ctx context.Context) error
}

// knownDimensions maps provider model identifiers to their declared
// embedding dimension, per section 6.4. Models not listed default to
// defaultDimension.
var knownDimensions = map[string]int{
	"nomic-embed-text":      768,
	"mxbai-embed-large":     1024,
	"all-minilm":            384,
	"text-embedding-3-large": 3072,
}

const defaultDimension = 1536

// DimensionFor returns the declared embedding dimension for model, falling
// back to defaultDimension for unlisted models.
func DimensionFor(model string) int {
	if d, ok := knownDimensions[model]; ok {
		return d
	}
	return defaultDimension
}

// Default per-operation deadlines, per section 5 ("Cancellation and
// timeouts"): 60s for embedding calls.
const DefaultEmbedTimeout = 60 * time.Second
