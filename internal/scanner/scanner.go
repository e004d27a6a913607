// Package scanner walks directory roots and admits files for indexing,
// applying the ignore-pattern, size, and extension-category rules.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/directory-indexer/directory-indexer/internal/pathutil"
)

// FileInfo describes one file discovered by a scan.
type FileInfo struct {
	AbsolutePath string
	Size         int64
	ModTime      time.Time
	ParentDirs   []string
}

// SkipReason identifies why a file did not reach the chunker.
type SkipReason string

const (
	SkipNone          SkipReason = ""
	SkipIgnored       SkipReason = "ignored"
	SkipTooLarge      SkipReason = "too_large"
	SkipUnknownExtension SkipReason = "unknown_extension"
)

// Result is one entry produced by a scan: either an admitted FileInfo or a
// skipped path carrying its SkipReason. Size, ModTime, and ParentDirs are
// populated on a SkipTooLarge result so the pipeline can record the skip in
// the metadata store without re-stat'ing the file.
type Result struct {
	File       *FileInfo
	Skip       SkipReason
	Path       string
	Err        error
	Size       int64
	ModTime    time.Time
	ParentDirs []string
}

// Options configures a scan.
type Options struct {
	IgnorePatterns []string
	MaxFileSize    int64
}

var extensionCategories = map[string]string{
	".md": "text", ".txt": "text", ".rst": "text", ".org": "text",
	".rs": "code", ".py": "code", ".js": "code", ".ts": "code", ".go": "code",
	".java": "code", ".cpp": "code", ".c": "code", ".h": "code",
	".json": "data", ".yaml": "data", ".yml": "data", ".toml": "data", ".csv": "data",
	".html": "markup", ".xml": "markup",
	".env": "config", ".conf": "config", ".ini": "config", ".cfg": "config",
}

// Admissible reports whether ext (including the leading dot) maps to a
// known textual category.
func Admissible(ext string) bool {
	_, ok := extensionCategories[strings.ToLower(ext)]
	return ok
}

// Scan walks root, streaming a Result per discovered regular file on the
// returned channel. The channel is closed when the walk completes or ctx
// is cancelled. Symbolic links are never followed.
func Scan(ctx context.Context, root string, opts Options) (<-chan Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", absRoot)
	}

	results := make(chan Result, 64)

	go func() {
		defer close(results)

		_ = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if walkErr != nil {
				select {
				case results <- Result{Path: path, Err: walkErr}:
				case <-ctx.Done():
				}
				return nil
			}

			if d.IsDir() {
				return nil
			}
			if d.Type()&fs.ModeSymlink != 0 {
				return nil
			}

			normalized, err := pathutil.Normalize(path)
			if err != nil {
				select {
				case results <- Result{Path: path, Err: err}:
				case <-ctx.Done():
				}
				return nil
			}

			if matchesAny(normalized, opts.IgnorePatterns) {
				select {
				case results <- Result{Path: normalized, Skip: SkipIgnored}:
				case <-ctx.Done():
				}
				return nil
			}

			fileInfo, err := d.Info()
			if err != nil {
				select {
				case results <- Result{Path: normalized, Err: err}:
				case <-ctx.Done():
				}
				return nil
			}

			maxSize := opts.MaxFileSize
			if maxSize <= 0 {
				maxSize = 10 * 1024 * 1024
			}
			if fileInfo.Size() > maxSize {
				select {
				case results <- Result{
					Path:       normalized,
					Skip:       SkipTooLarge,
					Size:       fileInfo.Size(),
					ModTime:    fileInfo.ModTime(),
					ParentDirs: pathutil.ParentDirs(normalized),
				}:
				case <-ctx.Done():
				}
				return nil
			}

			if !Admissible(filepath.Ext(normalized)) {
				select {
				case results <- Result{Path: normalized, Skip: SkipUnknownExtension}:
				case <-ctx.Done():
				}
				return nil
			}

			select {
			case results <- Result{File: &FileInfo{
				AbsolutePath: normalized,
				Size:         fileInfo.Size(),
				ModTime:      fileInfo.ModTime(),
				ParentDirs:   pathutil.ParentDirs(normalized),
			}}:
			case <-ctx.Done():
			}
			return nil
		})
	}()

	return results, nil
}

// matchesAny applies the four admission-rule-1 pattern forms from section
// 4.1 against a normalized path.
func matchesAny(path string, patterns []string) bool {
	name := filepath.Base(path)
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		switch {
		case pattern == ".*":
			if strings.HasPrefix(name, ".") {
				return true
			}
		case strings.HasPrefix(pattern, "*"):
			if strings.HasSuffix(name, strings.TrimPrefix(pattern, "*")) {
				return true
			}
		case name == pattern:
			return true
		case strings.Contains(path, pattern):
			return true
		}
	}
	return false
}
