package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSimilarCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "similar <file>",
		Short: "Find files similar to a given file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			results, err := app.engine().FindSimilarFiles(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no similar files")
				return nil
			}

			out := cmd.OutOrStdout()
			for i, r := range results {
				fmt.Fprintf(out, "%d. %s (score %.4f)\n", i+1, r.FilePath, r.Score)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of similar files")

	return cmd
}
