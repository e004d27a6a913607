package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/directory-indexer/directory-indexer/internal/store"
)

// stubEmbedder returns a fixed vector per text, or a hash-derived vector
// when none was registered, so distinct query texts score distinctly.
type stubEmbedder struct {
	dims    int
	vectors map[string][]float32
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	v := make([]float32, s.dims)
	for i, b := range []byte(text) {
		v[i%s.dims] += float32(b)
	}
	return v, nil
}
func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
func (s *stubEmbedder) Dimensions() int                   { return s.dims }
func (s *stubEmbedder) ModelName() string                 { return "stub" }
func (s *stubEmbedder) HealthCheck(context.Context) error { return nil }

type fakePoint struct {
	path    string
	ordinal int
	score   float32
}

// newFakeSearchServer serves only /collections/docs/points/search, returning
// a fixed, pre-scripted set of scored points regardless of query vector.
func newFakeSearchServer(t *testing.T, points []fakePoint) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/collections/docs/points/search", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Limit int `json:"limit"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		result := make([]map[string]any, 0, len(points))
		for i, p := range points {
			if i >= body.Limit {
				break
			}
			result = append(result, map[string]any{
				"id":    "pt",
				"score": p.score,
				"payload": map[string]any{
					"file_path":           p.path,
					"chunk_ordinal":       p.ordinal,
					"parent_directories": []string{filepath.Dir(p.path)},
				},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestEngine(t *testing.T, points []fakePoint) (*Engine, *store.MetadataStore) {
	t.Helper()
	m, err := store.OpenMetadataStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	srv := newFakeSearchServer(t, points)
	vs := store.NewVectorStore(srv.URL, "")

	e := &Engine{
		Metadata:   m,
		Vectors:    vs,
		Embedder:   &stubEmbedder{dims: 4, vectors: map[string][]float32{}},
		Collection: "docs",
	}
	return e, m
}

func ptr(f float32) *float32 { return &f }

func TestSearchRejectsEmptyText(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	_, err := e.Search(context.Background(), Query{Text: "   ", Limit: 5})
	assert.Error(t, err)
}

func TestSearchRejectsBadThreshold(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	_, err := e.Search(context.Background(), Query{Text: "hello", Limit: 5, SimilarityThreshold: ptr(1.5)})
	assert.Error(t, err)
}

func TestSearchRejectsMissingDirectoryFilter(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	_, err := e.Search(context.Background(), Query{Text: "hello", Limit: 5, DirectoryFilter: "/does/not/exist"})
	assert.Error(t, err)
}

// P7: results are returned in non-increasing score order.
func TestSearchRanksByDescendingScore(t *testing.T) {
	e, _ := newTestEngine(t, []fakePoint{
		{path: "/a/low.go", ordinal: 0, score: 0.2},
		{path: "/a/high.go", ordinal: 0, score: 0.9},
		{path: "/a/mid.go", ordinal: 0, score: 0.5},
	})
	results, err := e.Search(context.Background(), Query{Text: "hello", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "/a/high.go", results[0].FilePath)
	assert.Equal(t, "/a/mid.go", results[1].FilePath)
	assert.Equal(t, "/a/low.go", results[2].FilePath)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score)
	}
}

// P5: directory_filter soundness — every returned result lies under the filter.
func TestSearchDirectoryFilterSoundness(t *testing.T) {
	dir := t.TempDir()
	inside := filepath.Join(dir, "inside.go")
	require.NoError(t, os.WriteFile(inside, []byte("x"), 0o644))

	e, _ := newTestEngine(t, []fakePoint{
		{path: inside, ordinal: 0, score: 0.8},
		{path: "/elsewhere/outside.go", ordinal: 0, score: 0.95},
	})
	results, err := e.Search(context.Background(), Query{Text: "hello", Limit: 10, DirectoryFilter: dir})
	require.NoError(t, err)
	for _, r := range results {
		assert.Truef(t, len(r.FilePath) >= len(dir) && r.FilePath[:len(dir)] == dir, "result %s not under %s", r.FilePath, dir)
	}
	require.Len(t, results, 1)
	assert.Equal(t, inside, results[0].FilePath)
}

// P6: similarity_threshold soundness — no returned result scores below threshold.
func TestSearchThresholdSoundness(t *testing.T) {
	e, _ := newTestEngine(t, []fakePoint{
		{path: "/a/low.go", ordinal: 0, score: 0.1},
		{path: "/a/high.go", ordinal: 0, score: 0.9},
	})
	threshold := float32(0.5)
	results, err := e.Search(context.Background(), Query{Text: "hello", Limit: 10, SimilarityThreshold: &threshold})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/a/high.go", results[0].FilePath)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, threshold)
	}
}

func TestSearchTruncatesToLimit(t *testing.T) {
	e, _ := newTestEngine(t, []fakePoint{
		{path: "/a/1.go", ordinal: 0, score: 0.9},
		{path: "/a/2.go", ordinal: 0, score: 0.8},
		{path: "/a/3.go", ordinal: 0, score: 0.7},
	})
	results, err := e.Search(context.Background(), Query{Text: "hello", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

// P4: chunk round-trip — preview returns exactly the stored chunk text.
func TestPreviewReturnsStoredChunkText(t *testing.T) {
	e, m := newTestEngine(t, nil)
	require.NoError(t, m.UpsertFile(context.Background(), store.File{
		Path: "/a/doc.md",
		Chunks: []store.ChunkRef{
			{Ordinal: 0, Text: "first chunk"},
			{Ordinal: 1, Text: "second chunk"},
		},
	}))

	text, err := e.Preview(context.Background(), Result{FilePath: "/a/doc.md", ChunkOrdinal: 1})
	require.NoError(t, err)
	assert.Equal(t, "second chunk", text)
}

func TestPreviewTruncatesLongChunks(t *testing.T) {
	e, m := newTestEngine(t, nil)
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	require.NoError(t, m.UpsertFile(context.Background(), store.File{
		Path:   "/a/big.md",
		Chunks: []store.ChunkRef{{Ordinal: 0, Text: string(long)}},
	}))

	text, err := e.Preview(context.Background(), Result{FilePath: "/a/big.md", ChunkOrdinal: 0})
	require.NoError(t, err)
	assert.Len(t, text, 200)
}

// P8: self-exclusion — find_similar_files never returns the query file itself.
func TestFindSimilarFilesExcludesSelf(t *testing.T) {
	dir := t.TempDir()
	query := filepath.Join(dir, "query.go")
	require.NoError(t, os.WriteFile(query, []byte("package main"), 0o644))

	e, _ := newTestEngine(t, []fakePoint{
		{path: query, ordinal: 0, score: 1.0},
		{path: filepath.Join(dir, "sibling.go"), ordinal: 0, score: 0.7},
	})
	results, err := e.FindSimilarFiles(context.Background(), query, 5)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, query, r.FilePath)
	}
	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join(dir, "sibling.go"), results[0].FilePath)
}

func TestFindSimilarFilesGroupsByHighestScore(t *testing.T) {
	dir := t.TempDir()
	query := filepath.Join(dir, "query.go")
	require.NoError(t, os.WriteFile(query, []byte("package main"), 0o644))
	other := filepath.Join(dir, "other.go")

	e, _ := newTestEngine(t, []fakePoint{
		{path: other, ordinal: 0, score: 0.4},
		{path: other, ordinal: 1, score: 0.9},
	})
	results, err := e.FindSimilarFiles(context.Background(), query, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, float32(0.9), results[0].Score)
	assert.Equal(t, 1, results[0].ChunkOrdinal)
}

func TestFindSimilarFilesRejectsMissingFile(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	_, err := e.FindSimilarFiles(context.Background(), "/definitely/not/there.go", 5)
	assert.Error(t, err)
}

func TestFindSimilarFilesRejectsDirectory(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	dir := t.TempDir()
	_, err := e.FindSimilarFiles(context.Background(), dir, 5)
	assert.Error(t, err)
}

func TestGetFileContentReturnsWholeFileWithoutRange(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	text, err := e.GetFileContent(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestGetFileContentConcatenatesStoredChunks(t *testing.T) {
	e, m := newTestEngine(t, nil)
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("irrelevant raw bytes"), 0o644))
	require.NoError(t, m.UpsertFile(context.Background(), store.File{
		Path: path,
		Chunks: []store.ChunkRef{
			{Ordinal: 0, Text: "chunk-zero"},
			{Ordinal: 1, Text: "chunk-one"},
			{Ordinal: 2, Text: "chunk-two"},
		},
	}))

	text, err := e.GetFileContent(context.Background(), path, &Range{Start: 2, End: 3})
	require.NoError(t, err)
	assert.Equal(t, "chunk-one\nchunk-two", text)
}

func TestGetFileContentSynthesizesBandsWithoutStoredChunks(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	path := filepath.Join(t.TempDir(), "a.txt")
	content := make([]byte, 100)
	for i := range content {
		content[i] = byte('a' + i%26)
	}
	require.NoError(t, os.WriteFile(path, content, 0o644))

	text, err := e.GetFileContent(context.Background(), path, &Range{Start: 1, End: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, text)

	full, err := e.GetFileContent(context.Background(), path, &Range{Start: 1, End: 10})
	require.NoError(t, err)
	assert.Equal(t, string(content), full)
}

func TestGetFileContentRejectsOutOfRangeStart(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("short"), 0o644))

	_, err := e.GetFileContent(context.Background(), path, &Range{Start: 0, End: 1})
	assert.Error(t, err)

	_, err = e.GetFileContent(context.Background(), path, &Range{Start: 20, End: 21})
	assert.Error(t, err)
}

func TestGetFileContentRejectsMissingFile(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	_, err := e.GetFileContent(context.Background(), "/definitely/not/there.txt", nil)
	assert.Error(t, err)
}
