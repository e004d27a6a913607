package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, "directory-indexer", cfg.Storage.Qdrant.Collection)
	assert.False(t, cfg.Monitoring.FileWatching)
	assert.NoError(t, cfg.Validate())
}

func TestLoadProjectConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
storage:
  qdrant:
    collection: myproject
embedding:
  provider: ollama
  model: mxbai-embed-large
indexing:
  chunk_size: 500
  overlap: 50
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".directory-indexer.yaml"), []byte(yamlContent), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "myproject", cfg.Storage.Qdrant.Collection)
	assert.Equal(t, "mxbai-embed-large", cfg.Embedding.Model)
	assert.Equal(t, 500, cfg.Indexing.ChunkSize)
	assert.Equal(t, 50, cfg.Indexing.Overlap)
}

func TestEnvOverridesBeatFile(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
storage:
  qdrant:
    endpoint: http://file-endpoint:6333
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".directory-indexer.yaml"), []byte(yamlContent), 0o644))

	t.Setenv("QDRANT_ENDPOINT", "http://env-endpoint:6333")
	t.Setenv("DIRECTORY_INDEXER_COLLECTION", "env-collection")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://env-endpoint:6333", cfg.Storage.Qdrant.Endpoint)
	assert.Equal(t, "env-collection", cfg.Storage.Qdrant.Collection)
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := New()
	cfg.Embedding.Provider = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresAPIKeyForOpenAI(t *testing.T) {
	cfg := New()
	cfg.Embedding.Provider = "openai"
	cfg.Embedding.Model = "text-embedding-3-large"
	assert.Error(t, cfg.Validate())

	cfg.Embedding.APIKey = "sk-test"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsFileWatching(t *testing.T) {
	cfg := New()
	cfg.Monitoring.FileWatching = true
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsOverlapTooLarge(t *testing.T) {
	cfg := New()
	cfg.Indexing.ChunkSize = 100
	cfg.Indexing.Overlap = 100
	assert.Error(t, cfg.Validate())
}

func TestWriteYAMLRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")
	cfg := New()
	require.NoError(t, cfg.WriteYAML(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sqlite_path")
}
