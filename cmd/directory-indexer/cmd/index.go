package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index <path>...",
		Short: "Index one or more directory trees",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			stats, err := app.pipeline().IndexRoots(cmd.Context(), args)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"%d director(y/ies) processed: %d files indexed, %d skipped, %d errored, %d chunks created\n",
				stats.DirsProcessed, stats.FilesProcessed, stats.FilesSkipped, stats.FilesErrored, stats.ChunksCreated)
			return nil
		},
	}
}
