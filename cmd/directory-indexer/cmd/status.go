package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/directory-indexer/directory-indexer/internal/errors"
)

type statusReport struct {
	Directories     int   `json:"directories"`
	Files           int   `json:"files"`
	Chunks          int   `json:"chunks"`
	VectorPoints    int64 `json:"vector_points"`
	IndexedVectors  int64 `json:"indexed_vectors"`
	DatabaseSizeMiB float64 `json:"database_size_mib"`
}

func newStatusCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return errors.InvalidInput("unknown status format %q, must be text or json", format)
			}

			app, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			dirCount, err := app.Metadata.CountDirectories(cmd.Context())
			if err != nil {
				return err
			}
			files, err := app.Metadata.AllFiles(cmd.Context())
			if err != nil {
				return err
			}
			chunkCount := 0
			for _, f := range files {
				chunkCount += len(f.Chunks)
			}

			var vectorPoints, indexedVectors int64
			if info, err := app.Vectors.GetCollectionInfo(cmd.Context(), app.Config.Storage.Qdrant.Collection); err == nil {
				vectorPoints = info.PointsCount
				indexedVectors = info.IndexedVectorsCount
			}

			sizeBytes := app.Metadata.DatabaseSizeBytes(app.Config.Storage.SQLitePath)

			report := statusReport{
				Directories:     dirCount,
				Files:           len(files),
				Chunks:          chunkCount,
				VectorPoints:    vectorPoints,
				IndexedVectors:  indexedVectors,
				DatabaseSizeMiB: float64(sizeBytes) / (1024 * 1024),
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				encoded, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return errors.JSON("encode status: %v", err)
				}
				fmt.Fprintln(out, string(encoded))
				return nil
			}

			fmt.Fprintf(out, "directories:      %d\n", report.Directories)
			fmt.Fprintf(out, "files:            %d\n", report.Files)
			fmt.Fprintf(out, "chunks:           %d\n", report.Chunks)
			fmt.Fprintf(out, "vector points:    %d\n", report.VectorPoints)
			fmt.Fprintf(out, "indexed vectors:  %d\n", report.IndexedVectors)
			fmt.Fprintf(out, "database size:    %.2f MiB\n", report.DatabaseSizeMiB)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")

	return cmd
}
