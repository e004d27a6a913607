// Package preflight runs environment_setup liveness checks before indexing
// or serving: is the embedding provider reachable, is the vector store
// reachable, can the metadata directory be written to.
package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/directory-indexer/directory-indexer/internal/embed"
	"github.com/directory-indexer/directory-indexer/internal/store"
)

// CheckStatus is the outcome of a single check.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// CheckResult holds the outcome of one named check.
type CheckResult struct {
	Name     string
	Status   CheckStatus
	Message  string
	Required bool
}

// IsCritical reports whether this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker runs the liveness checks.
type Checker struct {
	output io.Writer
}

// Option configures a Checker.
type Option func(*Checker)

// WithOutput sets the writer PrintResults writes to.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) { c.output = w }
}

// New creates a Checker.
func New(opts ...Option) *Checker {
	c := &Checker{output: os.Stdout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check against the given embedder, vector store, and
// metadata database path.
func (c *Checker) RunAll(ctx context.Context, embedder embed.Embedder, vectors *store.VectorStore, sqlitePath string) []CheckResult {
	return []CheckResult{
		c.checkEmbedder(ctx, embedder),
		c.checkVectorStore(ctx, vectors),
		c.checkMetadataDir(sqlitePath),
	}
}

func (c *Checker) checkEmbedder(ctx context.Context, embedder embed.Embedder) CheckResult {
	result := CheckResult{Name: "embedding_provider", Required: true}
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := embedder.HealthCheck(checkCtx); err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}
	result.Status = StatusPass
	result.Message = fmt.Sprintf("reachable (model %s, %d dims)", embedder.ModelName(), embedder.Dimensions())
	return result
}

func (c *Checker) checkVectorStore(ctx context.Context, vectors *store.VectorStore) CheckResult {
	result := CheckResult{Name: "vector_store", Required: true}
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := vectors.HealthCheck(checkCtx); err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}
	result.Status = StatusPass
	result.Message = "reachable"
	return result
}

func (c *Checker) checkMetadataDir(sqlitePath string) CheckResult {
	result := CheckResult{Name: "metadata_directory", Required: true}
	if sqlitePath == "" {
		result.Status = StatusPass
		result.Message = "in-memory database"
		return result
	}

	dir := filepath.Dir(sqlitePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create %s: %v", dir, err)
		return result
	}

	probe := filepath.Join(dir, ".directory-indexer-preflight-test")
	f, err := os.Create(probe)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot write to %s: %v", dir, err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(probe)

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s is writable", dir)
	return result
}

// HasCriticalFailures reports whether any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// PrintResults writes a human-readable report of results.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "directory-indexer environment check")
	_, _ = fmt.Fprintln(c.output, "====================================")
	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
	}
}
