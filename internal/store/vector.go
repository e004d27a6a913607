package store

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

// Point is one vector in the vector store: an opaque ID, a vector, and a
// payload carrying enough metadata to reconstruct a search result.
type Point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload Payload   `json:"payload"`
}

// Payload is the per-point metadata stored alongside each vector.
type Payload struct {
	FilePath      string   `json:"file_path"`
	ChunkOrdinal  int      `json:"chunk_ordinal"`
	ParentDirs    []string `json:"parent_directories"`
}

// ScoredPoint is a search hit: a point plus its similarity score.
type ScoredPoint struct {
	Point
	Score float32 `json:"score"`
}

// CollectionInfo reports a collection's accounting fields.
type CollectionInfo struct {
	PointsCount         int64 `json:"points_count"`
	IndexedVectorsCount int64 `json:"indexed_vectors_count"`
}

// VectorStore is an HTTP client for the external, Qdrant-shaped vector
// database named in section 6.5.
type VectorStore struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

// DefaultVectorTimeout is the bounded deadline for vector-store calls, per
// section 5.
const DefaultVectorTimeout = 30 * time.Second

// NewVectorStore constructs a client against endpoint, authenticating with
// apiKey when non-empty.
func NewVectorStore(endpoint, apiKey string) *VectorStore {
	return &VectorStore{
		client:   &http.Client{Timeout: DefaultVectorTimeout},
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

func (v *VectorStore) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.JSON("encode request to %s: %v", path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, v.endpoint+path, reader)
	if err != nil {
		return errors.HTTP("build request to %s: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("api-key", v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return errors.VectorStore("request to %s failed: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.HTTP("read response from %s: %v", path, err)
	}
	if resp.StatusCode >= 300 {
		return errors.VectorStore("%s returned status %d: %s", path, resp.StatusCode, string(respBody))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.VectorStore("%s returned unparseable body: %v", path, err)
	}
	return nil
}

// HasCollection reports whether collection already exists.
func (v *VectorStore) HasCollection(ctx context.Context, collection string) (bool, error) {
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := v.do(ctx, http.MethodGet, "/collections", nil, &resp); err != nil {
		return false, err
	}
	for _, c := range resp.Result.Collections {
		if c.Name == collection {
			return true, nil
		}
	}
	return false, nil
}

// CreateCollection creates collection with the given vector size, using
// cosine distance as required by section 6.5.
func (v *VectorStore) CreateCollection(ctx context.Context, collection string, size int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     size,
			"distance": "Cosine",
		},
	}
	return v.do(ctx, http.MethodPut, "/collections/"+collection, body, nil)
}

// DeleteCollection removes collection and all its points.
func (v *VectorStore) DeleteCollection(ctx context.Context, collection string) error {
	return v.do(ctx, http.MethodDelete, "/collections/"+collection, nil, nil)
}

// GetCollectionInfo fetches accounting fields for collection.
func (v *VectorStore) GetCollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error) {
	var resp struct {
		Result CollectionInfo `json:"result"`
	}
	if err := v.do(ctx, http.MethodGet, "/collections/"+collection, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

// Upsert writes points into collection.
func (v *VectorStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	body := map[string]any{"points": points}
	return v.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", collection), body, nil)
}

// Search returns the top `limit` points nearest vector in collection.
func (v *VectorStore) Search(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	var resp struct {
		Result []struct {
			ID      string  `json:"id"`
			Score   float32 `json:"score"`
			Payload Payload `json:"payload"`
		} `json:"result"`
	}
	if err := v.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", collection), body, &resp); err != nil {
		return nil, err
	}

	out := make([]ScoredPoint, len(resp.Result))
	for i, r := range resp.Result {
		out[i] = ScoredPoint{
			Point: Point{ID: r.ID, Payload: r.Payload},
			Score: r.Score,
		}
	}
	return out, nil
}

// DeleteByFilePath removes every point whose payload.file_path equals path,
// implementing the delete-by-payload-filter operation named in section 6.5.
func (v *VectorStore) DeleteByFilePath(ctx context.Context, collection, path string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "file_path", "match": map[string]any{"value": path}},
			},
		},
	}
	return v.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/delete?wait=true", collection), body, nil)
}

// EnsureCollection creates collection if it does not already exist.
func (v *VectorStore) EnsureCollection(ctx context.Context, collection string, size int) error {
	exists, err := v.HasCollection(ctx, collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return v.CreateCollection(ctx, collection, size)
}

// HealthCheck verifies the vector store is reachable.
func (v *VectorStore) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := v.do(ctx, http.MethodGet, "/collections", nil, nil); err != nil {
		return errors.EnvironmentSetup("vector store unreachable at %s: %v. Setup required: %s", v.endpoint, err, errors.SetupURL)
	}
	return nil
}
