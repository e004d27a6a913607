package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/directory-indexer/directory-indexer/internal/errors"
)

// OpenAIEmbedder calls an OpenAI-compatible /v1/embeddings endpoint with
// bearer authentication.
type OpenAIEmbedder struct {
	client   *http.Client
	endpoint string
	model    string
	apiKey   string
	dims     int
	retry    RetryConfig
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder constructs an embedder against endpoint for model,
// authenticating with apiKey.
func NewOpenAIEmbedder(endpoint, model, apiKey string) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client:   &http.Client{Timeout: DefaultEmbedTimeout},
		endpoint: endpoint,
		model:    model,
		apiKey:   apiKey,
		dims:     DimensionFor(model),
		retry:    DefaultRetryConfig(),
	}
}

type openAIEmbeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbeddingDatum struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
	Object    string    `json:"object"`
}

type openAIEmbeddingsResponse struct {
	Data  []openAIEmbeddingDatum `json:"data"`
	Model string                 `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed requests a single embedding by delegating to EmbedBatch.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends all texts in one request body.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := WithRetry(ctx, e.retry, func() error {
		v, err := e.embedBatchOnce(ctx, texts)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *OpenAIEmbedder) embedBatchOnce(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody, err := json.Marshal(openAIEmbeddingsRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, errors.JSON("encode openai embeddings request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/v1/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, errors.HTTP("build openai request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, errors.Embedding("openai request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.HTTP("read openai response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Embedding("openai returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed openAIEmbeddingsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Embedding("openai returned unparseable body: %v", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, errors.Embedding("openai returned %d embeddings for %d inputs", len(parsed.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, errors.Embedding("openai returned out-of-range index %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Dimensions returns the configured model's declared dimension.
func (e *OpenAIEmbedder) Dimensions() int { return e.dims }

// ModelName returns the configured model identifier.
func (e *OpenAIEmbedder) ModelName() string { return e.model }

// HealthCheck sends a one-token embedding request to verify reachability
// and credentials.
func (e *OpenAIEmbedder) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if e.apiKey == "" {
		return errors.EnvironmentSetup("openai embedding provider at %s configured without an api key. Setup required: %s", e.endpoint, errors.SetupURL)
	}
	if _, err := e.embedBatchOnce(ctx, []string{"ping"}); err != nil {
		return errors.EnvironmentSetup("openai health check against %s failed: %v. Setup required: %s", e.endpoint, err, errors.SetupURL)
	}
	return nil
}
