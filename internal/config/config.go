// Package config loads the layered directory-indexer configuration: built-in
// defaults, a user config file, a project config file, and finally
// environment variables, applied in order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete directory-indexer configuration. It mirrors the
// schema described in section 6.2.
type Config struct {
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Indexing  IndexingConfig  `yaml:"indexing" json:"indexing"`
	Monitoring MonitoringConfig `yaml:"monitoring" json:"monitoring"`
}

// StorageConfig configures the metadata store (M) and the vector store (V).
type StorageConfig struct {
	SQLitePath string       `yaml:"sqlite_path" json:"sqlite_path"`
	Qdrant     QdrantConfig `yaml:"qdrant" json:"qdrant"`
}

// QdrantConfig configures the external vector store connection.
type QdrantConfig struct {
	Endpoint   string `yaml:"endpoint" json:"endpoint"`
	Collection string `yaml:"collection" json:"collection"`
	APIKey     string `yaml:"api_key" json:"api_key"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider string `yaml:"provider" json:"provider"` // "ollama" or "openai"
	Model    string `yaml:"model" json:"model"`
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	APIKey   string `yaml:"api_key" json:"api_key"` // required iff provider == "openai"
}

// IndexingConfig configures the walk/chunk/embed pipeline.
type IndexingConfig struct {
	ChunkSize      int      `yaml:"chunk_size" json:"chunk_size"`
	Overlap        int      `yaml:"overlap" json:"overlap"`
	MaxFileSize    int64    `yaml:"max_file_size" json:"max_file_size"`
	IgnorePatterns []string `yaml:"ignore_patterns" json:"ignore_patterns"`
	Concurrency    int      `yaml:"concurrency" json:"concurrency"`
}

// MonitoringConfig configures batch sizing and the (disabled) watch mode.
type MonitoringConfig struct {
	BatchSize    int  `yaml:"batch_size" json:"batch_size"`
	FileWatching bool `yaml:"file_watching" json:"file_watching"`
}

var defaultIgnorePatterns = []string{
	"/.git/",
	"/node_modules/",
	"/vendor/",
	"/__pycache__/",
	"/.venv/",
	"/dist/",
	"/build/",
}

// New returns a Config populated with built-in defaults.
func New() *Config {
	return &Config{
		Storage: StorageConfig{
			SQLitePath: defaultSQLitePath(),
			Qdrant: QdrantConfig{
				Endpoint:   "http://localhost:6333",
				Collection: "directory-indexer",
			},
		},
		Embedding: EmbeddingConfig{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			Endpoint: "http://localhost:11434",
		},
		Indexing: IndexingConfig{
			ChunkSize:      2000,
			Overlap:        200,
			MaxFileSize:    10 * 1024 * 1024,
			IgnorePatterns: append([]string(nil), defaultIgnorePatterns...),
			Concurrency:    4,
		},
		Monitoring: MonitoringConfig{
			BatchSize:    32,
			FileWatching: false,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".directory-indexer")
	}
	return filepath.Join(home, ".directory-indexer")
}

func defaultSQLitePath() string {
	return filepath.Join(defaultDataDir(), "metadata.db")
}

// UserConfigPath returns the path to the user/global configuration file,
// honoring XDG_CONFIG_HOME when set.
func UserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "directory-indexer", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "directory-indexer", "config.yaml")
	}
	return filepath.Join(home, ".config", "directory-indexer", "config.yaml")
}

// Load builds the effective configuration: defaults, then the user config
// file (if present), then a project config file (.directory-indexer.yaml
// under dir), then environment variable overrides, highest precedence last.
func Load(dir string) (*Config, error) {
	cfg := New()

	if path := UserConfigPath(); fileExists(path) {
		if err := cfg.mergeYAMLFile(path); err != nil {
			return nil, fmt.Errorf("load user config: %w", err)
		}
	}

	projectPath := filepath.Join(dir, ".directory-indexer.yaml")
	if !fileExists(projectPath) {
		projectPath = filepath.Join(dir, ".directory-indexer.yml")
	}
	if fileExists(projectPath) {
		if err := cfg.mergeYAMLFile(projectPath); err != nil {
			return nil, fmt.Errorf("load project config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithOverride builds the effective configuration the same way Load
// does, except the project config file is read from overridePath instead
// of being discovered under dir. Used by the CLI's --config flag.
func LoadWithOverride(dir, overridePath string) (*Config, error) {
	if overridePath == "" {
		return Load(dir)
	}

	cfg := New()
	if path := UserConfigPath(); fileExists(path) {
		if err := cfg.mergeYAMLFile(path); err != nil {
			return nil, fmt.Errorf("load user config: %w", err)
		}
	}
	if err := cfg.mergeYAMLFile(overridePath); err != nil {
		return nil, fmt.Errorf("load config %s: %w", overridePath, err)
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeYAMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

func (c *Config) mergeWith(o *Config) {
	if o.Storage.SQLitePath != "" {
		c.Storage.SQLitePath = o.Storage.SQLitePath
	}
	if o.Storage.Qdrant.Endpoint != "" {
		c.Storage.Qdrant.Endpoint = o.Storage.Qdrant.Endpoint
	}
	if o.Storage.Qdrant.Collection != "" {
		c.Storage.Qdrant.Collection = o.Storage.Qdrant.Collection
	}
	if o.Storage.Qdrant.APIKey != "" {
		c.Storage.Qdrant.APIKey = o.Storage.Qdrant.APIKey
	}

	if o.Embedding.Provider != "" {
		c.Embedding.Provider = o.Embedding.Provider
	}
	if o.Embedding.Model != "" {
		c.Embedding.Model = o.Embedding.Model
	}
	if o.Embedding.Endpoint != "" {
		c.Embedding.Endpoint = o.Embedding.Endpoint
	}
	if o.Embedding.APIKey != "" {
		c.Embedding.APIKey = o.Embedding.APIKey
	}

	if o.Indexing.ChunkSize != 0 {
		c.Indexing.ChunkSize = o.Indexing.ChunkSize
	}
	if o.Indexing.Overlap != 0 {
		c.Indexing.Overlap = o.Indexing.Overlap
	}
	if o.Indexing.MaxFileSize != 0 {
		c.Indexing.MaxFileSize = o.Indexing.MaxFileSize
	}
	if len(o.Indexing.IgnorePatterns) > 0 {
		c.Indexing.IgnorePatterns = o.Indexing.IgnorePatterns
	}
	if o.Indexing.Concurrency != 0 {
		c.Indexing.Concurrency = o.Indexing.Concurrency
	}

	if o.Monitoring.BatchSize != 0 {
		c.Monitoring.BatchSize = o.Monitoring.BatchSize
	}
	// FileWatching must stay false regardless; see Validate.
}

// applyEnvOverrides applies the environment variables with the highest
// precedence: QDRANT_ENDPOINT, QDRANT_API_KEY, OLLAMA_ENDPOINT,
// OPENAI_API_KEY, DIRECTORY_INDEXER_COLLECTION, DIRECTORY_INDEXER_DATA_DIR,
// DIRECTORY_INDEXER_CONCURRENCY.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("QDRANT_ENDPOINT"); v != "" {
		c.Storage.Qdrant.Endpoint = v
	}
	if v := os.Getenv("QDRANT_API_KEY"); v != "" {
		c.Storage.Qdrant.APIKey = v
	}
	if v := os.Getenv("OLLAMA_ENDPOINT"); v != "" && c.Embedding.Provider == "ollama" {
		c.Embedding.Endpoint = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv("DIRECTORY_INDEXER_COLLECTION"); v != "" {
		c.Storage.Qdrant.Collection = v
	}
	if v := os.Getenv("DIRECTORY_INDEXER_DATA_DIR"); v != "" {
		c.Storage.SQLitePath = filepath.Join(v, "metadata.db")
	}
	if v := os.Getenv("DIRECTORY_INDEXER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Indexing.Concurrency = n
		}
	}
}

// Validate enforces the invariants listed in section 6.2: a known provider,
// an API key when the provider is openai, and file_watching pinned to false.
func (c *Config) Validate() error {
	provider := strings.ToLower(c.Embedding.Provider)
	if provider != "ollama" && provider != "openai" {
		return fmt.Errorf("embedding.provider must be \"ollama\" or \"openai\", got %q", c.Embedding.Provider)
	}
	if provider == "openai" && c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required when embedding.provider is \"openai\"")
	}
	if c.Storage.Qdrant.Endpoint == "" {
		return fmt.Errorf("storage.qdrant.endpoint must not be empty")
	}
	if c.Storage.Qdrant.Collection == "" {
		return fmt.Errorf("storage.qdrant.collection must not be empty")
	}
	if c.Indexing.ChunkSize <= 0 {
		return fmt.Errorf("indexing.chunk_size must be positive, got %d", c.Indexing.ChunkSize)
	}
	if c.Indexing.Overlap < 0 || c.Indexing.Overlap >= c.Indexing.ChunkSize {
		return fmt.Errorf("indexing.overlap must be in [0, chunk_size), got %d", c.Indexing.Overlap)
	}
	if c.Indexing.Concurrency <= 0 {
		return fmt.Errorf("indexing.concurrency must be positive, got %d", c.Indexing.Concurrency)
	}
	if c.Monitoring.FileWatching {
		return fmt.Errorf("monitoring.file_watching must be false")
	}
	return nil
}

// WriteYAML serializes c to path, creating parent directories as needed.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
