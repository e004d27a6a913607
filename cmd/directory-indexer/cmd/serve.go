package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/directory-indexer/directory-indexer/internal/mcp"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Launch the tool server on standard I/O",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := &mcp.Server{
				Pipeline: app.pipeline(),
				Search:   app.engine(),
				Logger:   app.Logger,
			}
			return server.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
