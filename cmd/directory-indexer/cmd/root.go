// Package cmd provides the CLI commands for directory-indexer.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/directory-indexer/directory-indexer/internal/config"
	"github.com/directory-indexer/directory-indexer/internal/embed"
	"github.com/directory-indexer/directory-indexer/internal/index"
	"github.com/directory-indexer/directory-indexer/internal/logging"
	"github.com/directory-indexer/directory-indexer/internal/preflight"
	"github.com/directory-indexer/directory-indexer/internal/search"
	"github.com/directory-indexer/directory-indexer/internal/store"
	"github.com/directory-indexer/directory-indexer/pkg/version"
)

var (
	verbose    bool
	configPath string
)

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd creates the root command for directory-indexer.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "directory-indexer",
		Short:         "Semantic index over a directory tree",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("directory-indexer version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Raise log verbosity to debug")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Override the configuration file location")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSimilarCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// loadConfig loads the effective configuration, honoring --config when set.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determine working directory: %w", err)
	}
	return config.LoadWithOverride(cwd, configPath)
}

// setupLogging builds a logger honoring --verbose, and installs it as the
// package default so every internal component logs through it.
func setupLogging() *slog.Logger {
	logCfg := logging.DefaultConfig()
	if verbose {
		logCfg.Level = "debug"
	}
	logCfg.WriteToStderr = true
	logger, _, err := logging.Setup(logCfg)
	if err != nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	slog.SetDefault(logger)
	return logger
}

// appContext bundles every component a command needs, wired from the
// effective configuration.
type appContext struct {
	Config   *config.Config
	Metadata *store.MetadataStore
	Vectors  *store.VectorStore
	Embedder embed.Embedder
	Logger   *slog.Logger
}

func (a *appContext) Close() error {
	return a.Metadata.Close()
}

func (a *appContext) pipeline() *index.Pipeline {
	return &index.Pipeline{
		Metadata:       a.Metadata,
		Vectors:        a.Vectors,
		Embedder:       a.Embedder,
		Collection:     a.Config.Storage.Qdrant.Collection,
		ChunkSize:      a.Config.Indexing.ChunkSize,
		Overlap:        a.Config.Indexing.Overlap,
		MaxFileSize:    a.Config.Indexing.MaxFileSize,
		IgnorePatterns: a.Config.Indexing.IgnorePatterns,
		Concurrency:    a.Config.Indexing.Concurrency,
		Logger:         a.Logger,
	}
}

func (a *appContext) engine() *search.Engine {
	return &search.Engine{
		Metadata:   a.Metadata,
		Vectors:    a.Vectors,
		Embedder:   a.Embedder,
		Collection: a.Config.Storage.Qdrant.Collection,
	}
}

// buildApp loads configuration, runs preflight checks, and opens both
// stores. Callers must defer Close().
func buildApp(ctx context.Context) (*appContext, error) {
	logger := setupLogging()

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	embedder, err := embed.New(cfg.Embedding, 1000)
	if err != nil {
		return nil, err
	}

	vectors := store.NewVectorStore(cfg.Storage.Qdrant.Endpoint, cfg.Storage.Qdrant.APIKey)

	checker := preflight.New()
	results := checker.RunAll(ctx, embedder, vectors, cfg.Storage.SQLitePath)
	checker.PrintResults(results)
	if checker.HasCriticalFailures(results) {
		return nil, fmt.Errorf("environment preflight failed, see above")
	}

	metadata, err := store.OpenMetadataStore(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, err
	}

	return &appContext{
		Config:   cfg,
		Metadata: metadata,
		Vectors:  vectors,
		Embedder: embedder,
		Logger:   logger,
	}, nil
}
