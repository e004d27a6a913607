package search

import (
	"context"
	"os"
	"sort"

	"github.com/directory-indexer/directory-indexer/internal/errors"
	"github.com/directory-indexer/directory-indexer/internal/pathutil"
)

// overfetchMargin accommodates the self-drop and ties when grouping
// points by file, per section 4.4.2.
const overfetchMargin = 5

// SimilarResult is one grouped hit from FindSimilarFiles.
type SimilarResult struct {
	FilePath     string
	ChunkOrdinal int
	Score        float32
}

// FindSimilarFiles implements section 4.4.2.
func (e *Engine) FindSimilarFiles(ctx context.Context, filePath string, limit int) ([]SimilarResult, error) {
	if limit < 1 {
		return nil, errors.InvalidInput("limit must be >= 1, got %d", limit)
	}

	normalized, err := pathutil.Normalize(filePath)
	if err != nil {
		return nil, errors.InvalidInput("normalize file_path: %v", err)
	}
	info, statErr := os.Stat(normalized)
	if statErr != nil {
		return nil, errors.NotFound("file does not exist: %s", filePath)
	}
	if !info.Mode().IsRegular() {
		return nil, errors.InvalidInput("not a regular file: %s", filePath)
	}

	representative, err := e.representativeVector(ctx, normalized)
	if err != nil {
		return nil, err
	}

	points, err := e.Vectors.Search(ctx, e.Collection, representative, limit+overfetchMargin)
	if err != nil {
		return nil, err
	}

	best := map[string]SimilarResult{}
	for _, p := range points {
		if p.Payload.FilePath == normalized {
			continue
		}
		existing, ok := best[p.Payload.FilePath]
		if !ok || p.Score > existing.Score {
			best[p.Payload.FilePath] = SimilarResult{
				FilePath:     p.Payload.FilePath,
				ChunkOrdinal: p.Payload.ChunkOrdinal,
				Score:        p.Score,
			}
		}
	}

	grouped := make([]SimilarResult, 0, len(best))
	for _, r := range best {
		grouped = append(grouped, r)
	}
	sort.Slice(grouped, func(i, j int) bool { return grouped[i].Score > grouped[j].Score })

	if len(grouped) > limit {
		grouped = grouped[:limit]
	}
	return grouped, nil
}

// representativeVector embeds a file's first chunk when known to M, or the
// first 512 bytes read fresh from disk otherwise.
func (e *Engine) representativeVector(ctx context.Context, normalizedPath string) ([]float32, error) {
	f, err := e.Metadata.GetFile(ctx, normalizedPath)
	if err == nil && len(f.Chunks) > 0 {
		return e.Embedder.Embed(ctx, f.Chunks[0].Text)
	}

	content, readErr := os.ReadFile(normalizedPath)
	if readErr != nil {
		return nil, errors.FileProcessing("read %s: %v", normalizedPath, readErr)
	}
	if len(content) > 512 {
		content = content[:512]
	}
	return e.Embedder.Embed(ctx, string(content))
}
