package cmd

import (
	"fmt"

	"crosswalk/bootstrap"

	"github.com/spf13/cobra"
)

// newServeCmd creates the 'serve' subcommand
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the tool API over HTTP",
		Long: `Serve the tool API over HTTP until interrupted.

Routes: GET /health, GET /api/v1/tools, POST /api/v1/tools/{name} and, when
api.metrics_enabled is set, GET /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.NewApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.Shutdown()

			if err := app.Start(cmd.Context()); err != nil {
				return fmt.Errorf("failed to start application: %w", err)
			}
			if !quiet {
				successColor.Fprintf(cmd.ErrOrStderr(), "✓ Listening on %s\n", app.Config.API.Addr())
			}

			return app.WaitForShutdown()
		},
	}
}
