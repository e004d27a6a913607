package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func collect(t *testing.T, root string, opts Options) []Result {
	t.Helper()
	ch, err := Scan(context.Background(), root, opts)
	require.NoError(t, err)
	var out []Result
	for r := range ch {
		out = append(out, r)
	}
	return out
}

func TestScanAdmitsKnownExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a")
	writeFile(t, dir, "b.bin", "\x00\x01")

	results := collect(t, dir, Options{MaxFileSize: 1024})

	var admitted, skippedUnknown int
	for _, r := range results {
		if r.File != nil {
			admitted++
		}
		if r.Skip == SkipUnknownExtension {
			skippedUnknown++
		}
	}
	assert.Equal(t, 1, admitted)
	assert.Equal(t, 1, skippedUnknown)
}

func TestScanSkipsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.go", "0123456789")

	results := collect(t, dir, Options{MaxFileSize: 5})
	require.Len(t, results, 1)
	assert.Equal(t, SkipTooLarge, results[0].Skip)
}

func TestScanAppliesIgnorePatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vendor/dep.go", "package dep")
	writeFile(t, dir, "main.go", "package main")

	results := collect(t, dir, Options{MaxFileSize: 1024, IgnorePatterns: []string{"vendor"}})

	var admitted int
	for _, r := range results {
		if r.File != nil {
			admitted++
			assert.Contains(t, r.File.AbsolutePath, "main.go")
		}
	}
	assert.Equal(t, 1, admitted)
}

func TestScanDoesNotFollowSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := writeFile(t, dir, "real.go", "package real")
	link := filepath.Join(dir, "link.go")
	if err := os.Symlink(target, link); err != nil {
		t.Skip("symlinks unsupported in this environment")
	}

	results := collect(t, dir, Options{MaxFileSize: 1024})
	var admitted int
	for _, r := range results {
		if r.File != nil {
			admitted++
		}
	}
	assert.Equal(t, 1, admitted)
}

func TestMatchesAnyDotfilePattern(t *testing.T) {
	assert.True(t, matchesAny("/a/.hidden", []string{".*"}))
	assert.False(t, matchesAny("/a/visible", []string{".*"}))
}

func TestMatchesAnySuffixPattern(t *testing.T) {
	assert.True(t, matchesAny("/a/archive.tar.gz", []string{"*.gz"}))
}

func TestAdmissibleCategories(t *testing.T) {
	assert.True(t, Admissible(".go"))
	assert.True(t, Admissible(".md"))
	assert.True(t, Admissible(".yaml"))
	assert.False(t, Admissible(".exe"))
}
