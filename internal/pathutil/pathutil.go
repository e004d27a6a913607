// Package pathutil provides the path-normalization and content-hashing
// helpers used throughout directory-indexer to satisfy invariant I1
// (path canonicalization): every path stored in the metadata store or in a
// vector-store payload is the output of Normalize.
package pathutil

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
)

// Normalize converts path to an absolute, forward-slash path. A path that
// begins with a drive letter ("C:\" or "C:/") is treated as absolute on
// every platform, and its drive letter is case-folded to lowercase. Already
// Unix-style absolute paths are returned unmodified apart from slash
// normalization.
func Normalize(path string) (string, error) {
	s := strings.ReplaceAll(path, "\\", "/")
	isUnixAbsolute := strings.HasPrefix(s, "/")
	hasDrive := len(s) >= 3 && s[1] == ':' && s[2] == '/'

	if !filepath.IsAbs(path) && !isUnixAbsolute && !hasDrive {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", err
		}
		s = strings.ReplaceAll(abs, "\\", "/")
	}

	if !isUnixAbsolute && len(s) >= 2 && s[1] == ':' {
		s = strings.ToLower(s[:1]) + s[1:]
	}

	return s, nil
}

// HasPrefixDir reports whether path lies under dir once both are
// normalized — used by the directory_filter soundness check (spec P5).
func HasPrefixDir(path, dir string) bool {
	path = strings.TrimRight(path, "/")
	dir = strings.TrimRight(dir, "/")
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, dir+"/")
}

// HashFile computes the SHA-256 hex digest of a file's content.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// HashBytes computes the SHA-256 hex digest of content.
func HashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ParentDirs returns the ordered list of parent directory paths of a
// normalized absolute path, from the immediate parent up to the
// filesystem root, exclusive of the path itself.
func ParentDirs(normalizedPath string) []string {
	dir := filepath.Dir(normalizedPath)
	dir = strings.ReplaceAll(dir, "\\", "/")

	var parents []string
	for {
		parents = append(parents, dir)
		parent := filepath.Dir(dir)
		parent = strings.ReplaceAll(parent, "\\", "/")
		if parent == dir {
			break
		}
		dir = parent
	}
	return parents
}
