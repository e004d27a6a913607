package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/directory-indexer/directory-indexer/internal/errors"
)

// OllamaEmbedder calls an Ollama-compatible /api/embeddings endpoint.
type OllamaEmbedder struct {
	client   *http.Client
	endpoint string
	model    string
	dims     int
	retry    RetryConfig
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder constructs an embedder against endpoint for model.
func NewOllamaEmbedder(endpoint, model string) *OllamaEmbedder {
	return &OllamaEmbedder{
		client:   &http.Client{Timeout: DefaultEmbedTimeout},
		endpoint: endpoint,
		model:    model,
		dims:     DimensionFor(model),
		retry:    DefaultRetryConfig(),
	}
}

type ollamaEmbeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingsResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed requests a single embedding.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := WithRetry(ctx, e.retry, func() error {
		v, err := e.embedOnce(ctx, text)
		if err != nil {
			return err
		}
		vec = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

func (e *OllamaEmbedder) embedOnce(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(ollamaEmbeddingsRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, errors.JSON("encode ollama embeddings request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/api/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, errors.HTTP("build ollama request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, errors.Embedding("ollama request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.HTTP("read ollama response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Embedding("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed ollamaEmbeddingsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Embedding("ollama returned unparseable body: %v", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, errors.Embedding("ollama returned an empty embedding")
	}

	return parsed.Embedding, nil
}

// EmbedBatch calls Embed once per text; the Ollama embeddings endpoint has
// no native batch form.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embed text %d of %d: %w", i, len(texts), err)
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the configured model's declared dimension.
func (e *OllamaEmbedder) Dimensions() int { return e.dims }

// ModelName returns the configured model identifier.
func (e *OllamaEmbedder) ModelName() string { return e.model }

// HealthCheck pings Ollama's tag-listing endpoint.
func (e *OllamaEmbedder) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint+"/api/tags", nil)
	if err != nil {
		return errors.EnvironmentSetup("build ollama health check request: %v. Setup required: %s", err, errors.SetupURL)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return errors.EnvironmentSetup("ollama unreachable at %s: %v. Setup required: %s", e.endpoint, err, errors.SetupURL)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return errors.EnvironmentSetup("ollama health check at %s returned status %d. Setup required: %s", e.endpoint, resp.StatusCode, errors.SetupURL)
	}
	return nil
}
