package search

import (
	"context"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/directory-indexer/directory-indexer/internal/errors"
	"github.com/directory-indexer/directory-indexer/internal/pathutil"
	"github.com/directory-indexer/directory-indexer/internal/store"
)

// syntheticBands is the number of equal-sized bands get_file_content
// synthesizes over a file's raw bytes when M holds no chunks for it.
const syntheticBands = 10

// Range is a 1-indexed, inclusive chunk range as accepted by
// get_file_content's chunk_range parameter.
type Range struct {
	Start int
	End   int
}

// GetFileContent implements section 4.4.3.
func (e *Engine) GetFileContent(ctx context.Context, filePath string, chunkRange *Range) (string, error) {
	normalized, err := pathutil.Normalize(filePath)
	if err != nil {
		return "", errors.InvalidInput("normalize file_path: %v", err)
	}

	content, readErr := os.ReadFile(normalized)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return "", errors.NotFound("file does not exist: %s", filePath)
		}
		return "", errors.FileProcessing("read %s: %v", normalized, readErr)
	}

	if chunkRange == nil {
		return string(content), nil
	}

	f, getErr := e.Metadata.GetFile(ctx, normalized)
	if getErr == nil && len(f.Chunks) > 0 {
		return selectStoredChunks(f.Chunks, *chunkRange)
	}

	return selectSyntheticBands(string(content), *chunkRange)
}

func selectStoredChunks(chunks []store.ChunkRef, r Range) (string, error) {
	sorted := make([]store.ChunkRef, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Ordinal < sorted[j].Ordinal })

	if err := validateChunkRange(r, len(sorted)); err != nil {
		return "", err
	}

	var b strings.Builder
	for i := r.Start - 1; i <= r.End-1; i++ {
		if i > r.Start-1 {
			b.WriteString("\n")
		}
		b.WriteString(sorted[i].Text)
	}
	return b.String(), nil
}

func selectSyntheticBands(content string, r Range) (string, error) {
	bands := splitBands(content, syntheticBands)
	if err := validateChunkRange(r, len(bands)); err != nil {
		return "", err
	}

	// Bands are contiguous byte ranges of content, so they are concatenated
	// without a separator: selecting every band reproduces the file.
	var b strings.Builder
	for i := r.Start - 1; i <= r.End-1; i++ {
		b.WriteString(bands[i])
	}
	return b.String(), nil
}

// splitBands divides text into n contiguous, rune-boundary-aligned bands
// of roughly equal size. The final band absorbs any remainder.
func splitBands(text string, n int) []string {
	if text == "" {
		return nil
	}
	total := len(text)
	size := total / n
	if size == 0 {
		return []string{text}
	}

	bands := make([]string, 0, n)
	pos := 0
	for i := 0; i < n; i++ {
		end := pos + size
		if i == n-1 || end > total {
			end = total
		} else {
			end = alignToRuneBoundary(text, end)
		}
		bands = append(bands, text[pos:end])
		pos = end
	}
	return bands
}

func alignToRuneBoundary(text string, pos int) int {
	for pos > 0 && pos < len(text) && !isRuneStart(text[pos]) {
		pos++
	}
	return pos
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// ParseChunkRange parses the `get` command's and the get_content tool's
// chunk-selector syntax: "5" selects a single chunk, "1-5" an inclusive
// range. Both endpoints must be >= 1 and the range must be monotone.
func ParseChunkRange(s string) (*Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.InvalidInput("chunk selector must not be empty")
	}

	parts := strings.SplitN(s, "-", 2)
	if len(parts) == 1 {
		n, err := strconv.Atoi(parts[0])
		if err != nil || n < 1 {
			return nil, errors.InvalidInput("malformed chunk selector %q", s)
		}
		return &Range{Start: n, End: n}, nil
	}

	start, err1 := strconv.Atoi(parts[0])
	end, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || start < 1 || end < start {
		return nil, errors.InvalidInput("malformed chunk range %q", s)
	}
	return &Range{Start: start, End: end}, nil
}

// validateChunkRange enforces the 1-indexed inclusive bounds a
// chunk_range argument must satisfy against a count of available units.
func validateChunkRange(r Range, count int) error {
	if r.Start < 1 {
		return errors.InvalidInput("chunk_range start must be >= 1, got %d", r.Start)
	}
	if r.Start > count {
		return errors.InvalidInput("chunk_range start %d exceeds available range of %d", r.Start, count)
	}
	if r.End < r.Start {
		return errors.InvalidInput("chunk_range end %d must be >= start %d", r.End, r.Start)
	}
	if r.End > count {
		return errors.InvalidInput("chunk_range end %d exceeds available range of %d", r.End, count)
	}
	return nil
}
