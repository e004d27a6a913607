package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/directory-indexer/directory-indexer/internal/search"
)

func newGetCmd() *cobra.Command {
	var chunks string

	cmd := &cobra.Command{
		Use:   "get <file>",
		Short: "Print file content, optionally restricted to a chunk range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			var chunkRange *search.Range
			if cmd.Flags().Changed("chunks") {
				chunkRange, err = search.ParseChunkRange(chunks)
				if err != nil {
					return err
				}
			}

			content, err := app.engine().GetFileContent(cmd.Context(), args[0], chunkRange)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), content)
			return nil
		},
	}

	cmd.Flags().StringVar(&chunks, "chunks", "", "Chunk selector: a single ordinal (5) or inclusive range (1-5)")

	return cmd
}
