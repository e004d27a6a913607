// Package index implements the indexing pipeline (I): directory walk, file
// admission, change detection, chunking, ordered embedding dispatch, and
// dual-store commit with consistency recovery.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/semaphore"

	"github.com/directory-indexer/directory-indexer/internal/chunk"
	"github.com/directory-indexer/directory-indexer/internal/embed"
	"github.com/directory-indexer/directory-indexer/internal/errors"
	"github.com/directory-indexer/directory-indexer/internal/pathutil"
	"github.com/directory-indexer/directory-indexer/internal/scanner"
	"github.com/directory-indexer/directory-indexer/internal/store"
	"github.com/google/uuid"
)

// Stats reports the outcome of an index_roots call.
type Stats struct {
	DirsProcessed  int
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int
	ChunksCreated  int
}

// Pipeline wires the scanner, chunker, embedder, and both stores together.
type Pipeline struct {
	Metadata   *store.MetadataStore
	Vectors    *store.VectorStore
	Embedder   embed.Embedder
	Collection string

	ChunkSize      int
	Overlap        int
	MaxFileSize    int64
	IgnorePatterns []string
	Concurrency    int

	Logger *slog.Logger
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// IndexRoots runs the algorithm of section 4.3 against each root in order.
func (p *Pipeline) IndexRoots(ctx context.Context, roots []string) (Stats, error) {
	var stats Stats

	if err := p.reconcile(ctx); err != nil {
		return stats, err
	}

	for _, root := range roots {
		normalizedRoot, err := pathutil.Normalize(root)
		if err != nil {
			return stats, errors.InvalidInput("normalize root %s: %v", root, err)
		}
		if _, err := os.Stat(normalizedRoot); err != nil {
			return stats, errors.NotFound("root does not exist: %s", normalizedRoot)
		}

		if err := p.Metadata.UpsertDirectory(ctx, store.Directory{
			Path:   normalizedRoot,
			Status: store.DirectoryPending,
		}); err != nil {
			return stats, err
		}

		if err := p.indexRoot(ctx, normalizedRoot, &stats); err != nil {
			return stats, err
		}

		if err := p.Metadata.UpsertDirectory(ctx, store.Directory{
			Path:   normalizedRoot,
			Status: store.DirectoryCompleted,
		}); err != nil {
			return stats, err
		}
		stats.DirsProcessed++
	}

	return stats, nil
}

// reconcile implements the state-reconciliation check that precedes step 1:
// if V already holds data but M has none, the pipeline refuses to proceed;
// if M has files but V's collection is absent, it is recreated.
func (p *Pipeline) reconcile(ctx context.Context) error {
	fileCount := 0
	files, err := p.Metadata.AllFiles(ctx)
	if err != nil {
		return err
	}
	fileCount = len(files)

	hasCollection, err := p.Vectors.HasCollection(ctx, p.Collection)
	if err != nil {
		return err
	}

	if hasCollection && fileCount == 0 {
		info, err := p.Vectors.GetCollectionInfo(ctx, p.Collection)
		if err != nil {
			return err
		}
		if info.PointsCount > 0 {
			return errors.VectorStore(
				"collection %q already holds %d points but the metadata store has no files; "+
					"drop the collection or point to the correct metadata database before indexing",
				p.Collection, info.PointsCount)
		}
		return nil
	}

	if !hasCollection && fileCount > 0 {
		p.logger().Warn("vector store collection missing, recreating and re-embedding known files",
			slog.String("collection", p.Collection))
		if err := p.Vectors.CreateCollection(ctx, p.Collection, p.Embedder.Dimensions()); err != nil {
			return err
		}
		for _, f := range files {
			if err := p.Metadata.DeleteFile(ctx, f.Path); err != nil {
				return err
			}
		}
		return nil
	}

	return p.Vectors.EnsureCollection(ctx, p.Collection, p.Embedder.Dimensions())
}

func (p *Pipeline) indexRoot(ctx context.Context, root string, stats *Stats) error {
	results, err := scanner.Scan(ctx, root, scanner.Options{
		IgnorePatterns: p.IgnorePatterns,
		MaxFileSize:    p.MaxFileSize,
	})
	if err != nil {
		return err
	}

	for r := range results {
		if r.Err != nil {
			p.logger().Warn("scan error", slog.String("path", r.Path), slog.String("error", r.Err.Error()))
			continue
		}
		if r.Skip == scanner.SkipTooLarge {
			if err := p.recordSkippedFile(ctx, r, stats); err != nil {
				return err
			}
			continue
		}
		if r.File == nil {
			continue
		}
		if err := p.indexFile(ctx, r.File, stats); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) indexFile(ctx context.Context, info *scanner.FileInfo, stats *Stats) error {
	hash, err := pathutil.HashFile(info.AbsolutePath)
	if err != nil {
		return p.recordFileError(ctx, info, stats, fmt.Sprintf("read failed: %v", err))
	}

	existing, getErr := p.Metadata.GetFile(ctx, info.AbsolutePath)
	if getErr == nil {
		if existing.Hash == hash && existing.ModifiedTime == info.ModTime.Unix() {
			stats.FilesSkipped++
			return nil
		}
		if err := p.Vectors.DeleteByFilePath(ctx, p.Collection, info.AbsolutePath); err != nil {
			return err
		}
	}

	content, err := os.ReadFile(info.AbsolutePath)
	if err != nil {
		return p.recordFileError(ctx, info, stats, fmt.Sprintf("read failed: %v", err))
	}

	chunks, err := chunk.Split(string(content), p.ChunkSize, p.Overlap)
	if err != nil {
		return p.recordFileError(ctx, info, stats, fmt.Sprintf("chunk failed: %v", err))
	}

	points, refs := p.embedChunks(ctx, info.AbsolutePath, info.ParentDirs, chunks)

	if len(points) > 0 {
		if err := p.Vectors.Upsert(ctx, p.Collection, points); err != nil {
			return err
		}
	}

	if err := p.Metadata.UpsertFile(ctx, store.File{
		Path:         info.AbsolutePath,
		Size:         info.Size,
		ModifiedTime: info.ModTime.Unix(),
		Hash:         hash,
		ParentDirs:   info.ParentDirs,
		Chunks:       refs,
		Errors:       nil,
	}); err != nil {
		return err
	}

	stats.FilesProcessed++
	stats.ChunksCreated += len(chunks)
	return nil
}

// embedChunks dispatches one embedding call per chunk, bounded by
// Concurrency in-flight at once. A chunk whose embedding fails is logged
// and omitted from V; M still records every chunk ordinal.
func (p *Pipeline) embedChunks(ctx context.Context, path string, parentDirs []string, chunks []chunk.Chunk) ([]store.Point, []store.ChunkRef) {
	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := semaphore.NewWeighted(int64(concurrency))

	points := make([]store.Point, len(chunks))
	refs := make([]store.ChunkRef, len(chunks))
	ok := make([]bool, len(chunks))

	done := make(chan int, len(chunks))
	for _, c := range chunks {
		c := c
		if err := sem.Acquire(ctx, 1); err != nil {
			done <- c.Ordinal
			continue
		}
		go func() {
			defer sem.Release(1)
			vec, err := p.Embedder.Embed(ctx, c.Text)
			if err != nil {
				p.logger().Warn("embedding failed, chunk omitted from vector store",
					slog.String("path", path), slog.Int("ordinal", c.Ordinal), slog.String("error", err.Error()))
				refs[c.Ordinal] = store.ChunkRef{Ordinal: c.Ordinal, Text: c.Text}
				done <- c.Ordinal
				return
			}

			id := uuid.NewString()
			points[c.Ordinal] = store.Point{
				ID:     id,
				Vector: vec,
				Payload: store.Payload{
					FilePath:     path,
					ChunkOrdinal: c.Ordinal,
					ParentDirs:   parentDirs,
				},
			}
			refs[c.Ordinal] = store.ChunkRef{Ordinal: c.Ordinal, Text: c.Text, PointID: id}
			ok[c.Ordinal] = true
			done <- c.Ordinal
		}()
	}
	for range chunks {
		<-done
	}

	var outPoints []store.Point
	for i, present := range ok {
		if present {
			outPoints = append(outPoints, points[i])
		}
	}
	return outPoints, refs
}

// recordSkippedFile upserts a file record noting a size-skip, per section
// 4.1 rule 2, so the metadata store remembers the reason a file was never
// chunked instead of silently dropping it.
func (p *Pipeline) recordSkippedFile(ctx context.Context, r scanner.Result, stats *Stats) error {
	p.logger().Info("file skipped", slog.String("path", r.Path), slog.String("reason", string(r.Skip)))
	stats.FilesSkipped++
	return p.Metadata.UpsertFile(ctx, store.File{
		Path:         r.Path,
		Size:         r.Size,
		ModifiedTime: r.ModTime.Unix(),
		ParentDirs:   r.ParentDirs,
		Chunks:       nil,
		Errors:       []string{fmt.Sprintf("skipped: %s", r.Skip)},
	})
}

func (p *Pipeline) recordFileError(ctx context.Context, info *scanner.FileInfo, stats *Stats, message string) error {
	p.logger().Warn("file processing error", slog.String("path", info.AbsolutePath), slog.String("error", message))
	stats.FilesErrored++
	return p.Metadata.UpsertFile(ctx, store.File{
		Path:         info.AbsolutePath,
		Size:         info.Size,
		ModifiedTime: info.ModTime.Unix(),
		ParentDirs:   info.ParentDirs,
		Chunks:       nil,
		Errors:       []string{message},
	})
}
