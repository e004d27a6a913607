// Package integration exercises the indexing pipeline and the retrieval
// engine together against a shared in-memory metadata store, covering the
// end-to-end scenarios of spec section 8 that cross package boundaries.
package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/directory-indexer/directory-indexer/internal/index"
	"github.com/directory-indexer/directory-indexer/internal/search"
	"github.com/directory-indexer/directory-indexer/internal/store"
)

const embeddingDims = 4

type recordingEmbedder struct{}

func (recordingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return make([]float32, embeddingDims), nil
}
func (recordingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, embeddingDims)
	}
	return out, nil
}
func (recordingEmbedder) Dimensions() int                   { return embeddingDims }
func (recordingEmbedder) ModelName() string                 { return "recording" }
func (recordingEmbedder) HealthCheck(context.Context) error { return nil }

// newSearchableVectorServer returns a fake Qdrant-shaped server that
// actually retains upserted points and returns them from /search, so a
// search against it yields real results instead of an empty list.
func newSearchableVectorServer(t *testing.T) *httptest.Server {
	t.Helper()
	var stored []map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/collections", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"collections": []any{}}})
	})
	mux.HandleFunc("/collections/docs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/collections/docs/points", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Points []map[string]any `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		stored = append(stored, body.Points...)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/collections/docs/points/search", func(w http.ResponseWriter, r *http.Request) {
		var results []map[string]any
		for _, p := range stored {
			results = append(results, map[string]any{
				"id":      p["id"],
				"score":   float32(0.9),
				"payload": p["payload"],
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": results})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newWiredStores(t *testing.T) (*store.MetadataStore, *store.VectorStore) {
	t.Helper()
	m, err := store.OpenMetadataStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, store.NewVectorStore(newSearchableVectorServer(t).URL, "")
}

// TestSearchReturnsPreviewForIndexedReadme covers end-to-end scenario 3:
// after indexing the scenario-2 tree, searching for "documentation" finds
// the readme with chunk_id 0 and a preview starting with its first line.
func TestSearchReturnsPreviewForIndexedReadme(t *testing.T) {
	metadata, vectors := newWiredStores(t)
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"),
		[]byte("# Project README\nThis is documentation about the project."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.rs"), []byte("fn main() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"a":1}`), 0o644))

	pipeline := &index.Pipeline{
		Metadata: metadata, Vectors: vectors, Embedder: recordingEmbedder{},
		Collection: "docs", ChunkSize: 512, Overlap: 50, MaxFileSize: 10 << 20, Concurrency: 2,
	}
	stats, err := pipeline.IndexRoots(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.FilesProcessed)
	assert.Equal(t, 3, stats.ChunksCreated)

	engine := &search.Engine{Metadata: metadata, Vectors: vectors, Embedder: recordingEmbedder{}, Collection: "docs"}
	results, err := engine.Search(context.Background(), search.Query{Text: "documentation", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	var readme *search.Result
	for i, r := range results {
		if strings.HasSuffix(r.FilePath, "readme.md") {
			readme = &results[i]
			break
		}
	}
	require.NotNil(t, readme)
	assert.Equal(t, 0, readme.ChunkOrdinal)
	assert.Greater(t, readme.Score, float32(0))

	preview, err := engine.Preview(context.Background(), *readme)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(preview, "# Project README"))
}

// TestGetFileContentChunkRangeSelection covers end-to-end scenario 4.
func TestGetFileContentChunkRangeSelection(t *testing.T) {
	metadata, vectors := newWiredStores(t)
	dir := t.TempDir()

	var lines []string
	for i := 1; i <= 50; i++ {
		lines = append(lines, strings.Repeat("x", 18))
	}
	path := filepath.Join(dir, "fifty.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))

	pipeline := &index.Pipeline{
		Metadata: metadata, Vectors: vectors, Embedder: recordingEmbedder{},
		Collection: "docs", ChunkSize: 20, Overlap: 5, MaxFileSize: 10 << 20, Concurrency: 2,
	}
	_, err := pipeline.IndexRoots(context.Background(), []string{dir})
	require.NoError(t, err)

	engine := &search.Engine{Metadata: metadata, Vectors: vectors, Embedder: recordingEmbedder{}, Collection: "docs"}

	first, err := engine.GetFileContent(context.Background(), path, &search.Range{Start: 1, End: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	firstThree, err := engine.GetFileContent(context.Background(), path, &search.Range{Start: 1, End: 3})
	require.NoError(t, err)
	assert.Contains(t, firstThree, first)

	_, err = engine.GetFileContent(context.Background(), path, &search.Range{Start: 999, End: 999})
	assert.Error(t, err)
}

// TestEmbeddingDimensionsAreConstant covers P3: every point upserted into a
// collection carries the provider's declared dimension.
func TestEmbeddingDimensionsAreConstant(t *testing.T) {
	var captured [][]float32
	mux := http.NewServeMux()
	mux.HandleFunc("/collections", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"collections": []any{}}})
	})
	mux.HandleFunc("/collections/docs", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/collections/docs/points", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Points []struct {
				Vector []float32 `json:"vector"`
			} `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, p := range body.Points {
			captured = append(captured, p.Vector)
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	metadata, err := store.OpenMetadataStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = metadata.Close() })
	vectors := store.NewVectorStore(srv.URL, "")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello world, this is a test file with enough content to split into more than one chunk if the chunk size is small enough for it"), 0o644))

	pipeline := &index.Pipeline{
		Metadata: metadata, Vectors: vectors, Embedder: recordingEmbedder{},
		Collection: "docs", ChunkSize: 20, Overlap: 5, MaxFileSize: 10 << 20, Concurrency: 2,
	}
	_, err = pipeline.IndexRoots(context.Background(), []string{dir})
	require.NoError(t, err)

	require.NotEmpty(t, captured)
	for _, v := range captured {
		assert.Len(t, v, embeddingDims)
	}
}
