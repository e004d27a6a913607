// Package chunk splits file content into overlapping byte windows for
// embedding, moving window boundaries forward to the next UTF-8 codepoint
// start so chunks remain decodable text.
package chunk

import (
	"unicode/utf8"

	"github.com/directory-indexer/directory-indexer/internal/errors"
)

// Chunk is one ordinal-addressed slice of a file's content.
type Chunk struct {
	Ordinal int
	Text    string
}

// Split produces half-open byte windows [0,size), [size-overlap,
// 2*size-overlap), ... until text is exhausted, per the requirement that
// 0 <= overlap < size. The final window is truncated to the text's end;
// text shorter than size yields a single chunk.
func Split(text string, size, overlap int) ([]Chunk, error) {
	if size <= 0 {
		return nil, errors.InvalidInput("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, errors.InvalidInput("chunk overlap must be in [0, size), got %d (size %d)", overlap, size)
	}

	if len(text) == 0 {
		return nil, nil
	}

	var chunks []Chunk
	stride := size - overlap
	start := 0
	ordinal := 0

	for start < len(text) {
		end := start + size
		if end > len(text) {
			end = len(text)
		} else {
			end = alignToRuneBoundary(text, end)
		}

		chunks = append(chunks, Chunk{Ordinal: ordinal, Text: text[start:end]})
		ordinal++

		if end >= len(text) {
			break
		}

		next := start + stride
		next = alignToRuneBoundary(text, next)
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks, nil
}

// alignToRuneBoundary nudges forward from pos to the start of the next
// valid rune, so windows never split a multi-byte codepoint.
func alignToRuneBoundary(text string, pos int) int {
	if pos >= len(text) {
		return len(text)
	}
	for pos > 0 && !utf8.RuneStart(text[pos]) {
		pos++
		if pos >= len(text) {
			return len(text)
		}
	}
	return pos
}
