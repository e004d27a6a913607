package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/directory-indexer/directory-indexer/internal/search"
)

func newSearchCmd() *cobra.Command {
	var (
		limit int
		path  string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed content semantically",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			query := strings.Join(args, " ")
			results, err := app.engine().Search(cmd.Context(), search.Query{
				Text:            query,
				DirectoryFilter: path,
				Limit:           limit,
			})
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no results")
				return nil
			}

			out := cmd.OutOrStdout()
			for i, r := range results {
				preview, _ := app.engine().Preview(cmd.Context(), r)
				fmt.Fprintf(out, "%d. %s (chunk %d, score %.4f)\n", i+1, r.FilePath, r.ChunkOrdinal, r.Score)
				if preview != "" {
					fmt.Fprintf(out, "   %s\n", preview)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of results")
	cmd.Flags().StringVar(&path, "path", "", "Restrict results to files under this directory")

	return cmd
}
