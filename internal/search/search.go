// Package search implements the retrieval engine (R): query embedding,
// vector search, post-filtering, ranking, chunk-content reconstruction, and
// similar-file aggregation.
package search

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/directory-indexer/directory-indexer/internal/embed"
	"github.com/directory-indexer/directory-indexer/internal/errors"
	"github.com/directory-indexer/directory-indexer/internal/pathutil"
	"github.com/directory-indexer/directory-indexer/internal/store"
)

// Engine answers the three retrieval operations against a metadata store,
// a vector store, and an embedder.
type Engine struct {
	Metadata   *store.MetadataStore
	Vectors    *store.VectorStore
	Embedder   embed.Embedder
	Collection string
}

// Query is the input to Search.
type Query struct {
	Text                string
	DirectoryFilter     string
	Limit               int
	SimilarityThreshold *float32
}

// Result is one search hit.
type Result struct {
	FilePath     string
	ChunkOrdinal int
	Score        float32
	ParentDirs   []string
}

// Search implements section 4.4.1.
func (e *Engine) Search(ctx context.Context, q Query) ([]Result, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, errors.InvalidInput("search text must not be empty")
	}
	if q.Limit < 1 {
		return nil, errors.InvalidInput("limit must be >= 1, got %d", q.Limit)
	}
	if q.SimilarityThreshold != nil && (*q.SimilarityThreshold < 0 || *q.SimilarityThreshold > 1) {
		return nil, errors.InvalidInput("similarity_threshold must be in [0,1], got %f", *q.SimilarityThreshold)
	}

	var normalizedFilter string
	if q.DirectoryFilter != "" {
		var err error
		normalizedFilter, err = pathutil.Normalize(q.DirectoryFilter)
		if err != nil {
			return nil, errors.InvalidInput("normalize directory_filter: %v", err)
		}
		info, err := os.Stat(normalizedFilter)
		if err != nil || !info.IsDir() {
			return nil, errors.InvalidInput("directory_filter does not exist: %s", q.DirectoryFilter)
		}
	}

	vector, err := e.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	points, err := e.Vectors.Search(ctx, e.Collection, vector, q.Limit)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(points))
	for _, p := range points {
		if normalizedFilter != "" && !pathutil.HasPrefixDir(p.Payload.FilePath, normalizedFilter) {
			continue
		}
		if q.SimilarityThreshold != nil && p.Score < *q.SimilarityThreshold {
			continue
		}
		results = append(results, Result{
			FilePath:     p.Payload.FilePath,
			ChunkOrdinal: p.Payload.ChunkOrdinal,
			Score:        p.Score,
			ParentDirs:   p.Payload.ParentDirs,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

// Preview returns a rendering-only, <=200-byte preview of a result's chunk
// text, read from M per section 4.4.1 step 8.
func (e *Engine) Preview(ctx context.Context, r Result) (string, error) {
	f, err := e.Metadata.GetFile(ctx, r.FilePath)
	if err != nil {
		return "", err
	}
	for _, c := range f.Chunks {
		if c.Ordinal == r.ChunkOrdinal {
			return truncate(c.Text, 200), nil
		}
	}
	return "", nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
