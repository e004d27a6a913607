package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/directory-indexer/directory-indexer/internal/search"
	"github.com/directory-indexer/directory-indexer/pkg/version"
)

func (s *Server) callIndex(ctx context.Context, args map[string]any) (string, error) {
	raw, err := requireString(args, "directory_path")
	if err != nil {
		return "", err
	}

	var roots []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			roots = append(roots, p)
		}
	}
	if len(roots) == 0 {
		return "", paramShapeError("directory_path must contain at least one path")
	}

	stats, indexErr := s.Pipeline.IndexRoots(ctx, roots)
	if indexErr != nil {
		return "", indexErr
	}

	return fmt.Sprintf(
		"indexed %d director(y/ies): %d files processed, %d skipped, %d errored, %d chunks created",
		stats.DirsProcessed, stats.FilesProcessed, stats.FilesSkipped, stats.FilesErrored, stats.ChunksCreated,
	), nil
}

func (s *Server) callSearch(ctx context.Context, args map[string]any) (string, error) {
	query, err := requireString(args, "query")
	if err != nil {
		return "", err
	}
	directoryFilter, err := optionalString(args, "directory_path")
	if err != nil {
		return "", err
	}
	limit, err := optionalLimit(args, 10)
	if err != nil {
		return "", err
	}

	results, searchErr := s.Search.Search(ctx, search.Query{
		Text:            query,
		DirectoryFilter: directoryFilter,
		Limit:           limit,
	})
	if searchErr != nil {
		return "", searchErr
	}
	if len(results) == 0 {
		return "no results", nil
	}

	var b strings.Builder
	for i, r := range results {
		preview, _ := s.Search.Preview(ctx, r)
		fmt.Fprintf(&b, "%d. %s (chunk %d, score %.4f)\n%s\n\n", i+1, r.FilePath, r.ChunkOrdinal, r.Score, preview)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *Server) callSimilarFiles(ctx context.Context, args map[string]any) (string, error) {
	filePath, err := requireString(args, "file_path")
	if err != nil {
		return "", err
	}
	limit, err := optionalLimit(args, 10)
	if err != nil {
		return "", err
	}

	results, findErr := s.Search.FindSimilarFiles(ctx, filePath, limit)
	if findErr != nil {
		return "", findErr
	}
	if len(results) == 0 {
		return "no similar files", nil
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s (score %.4f)\n", i+1, r.FilePath, r.Score)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *Server) callGetContent(ctx context.Context, args map[string]any) (string, error) {
	filePath, err := requireString(args, "file_path")
	if err != nil {
		return "", err
	}
	var chunkRange *search.Range
	if _, present := args["chunks"]; present {
		chunks, err := optionalString(args, "chunks")
		if err != nil {
			return "", err
		}
		chunkRange, err = search.ParseChunkRange(chunks)
		if err != nil {
			return "", paramShapeError("%v", err)
		}
	}

	return s.Search.GetFileContent(ctx, filePath, chunkRange)
}

func (s *Server) callServerInfo() (string, error) {
	model := ""
	dims := 0
	if s.Pipeline != nil && s.Pipeline.Embedder != nil {
		model = s.Pipeline.Embedder.ModelName()
		dims = s.Pipeline.Embedder.Dimensions()
	}
	return fmt.Sprintf("directory-indexer %s (embedding model %s, %d dims, collection %s)",
		version.Version, model, dims, s.Pipeline.Collection), nil
}
