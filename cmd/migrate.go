package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

// newMigrateCmd creates the 'migrate' subcommand. Opening the store applies
// pending migrations, so this reports the resulting status.
func newMigrateCmd() *cobra.Command {
	var rollback, reason string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and report status",
		Long: `Apply pending schema migrations and report status.

With --rollback, run the Down step of an applied migration and remove it from
the ledger. The next command that opens the store applies it again.`,
		Example: `  crosswalk migrate
  crosswalk migrate --rollback 1.1.0 --reason "rebuild lookup indexes"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rollback != "" && reason == "" {
				return errors.New("--reason is required with --rollback")
			}

			env, cleanup, err := openEnv()
			if err != nil {
				return err
			}
			defer cleanup()

			runner, err := env.storage.SQLite.NewMigrationRunner()
			if err != nil {
				return err
			}
			if rollback != "" {
				if err := runner.RollbackMigration(rollback, reason); err != nil {
					return err
				}
			}
			status, err := runner.Status()
			if err != nil {
				return err
			}

			if outputJSON {
				return outputAsJSON(cmd.OutOrStdout(), status)
			}

			w := cmd.OutOrStdout()
			if rollback != "" {
				warningColor.Fprintf(w, "✓ Rolled back %s at %s\n", rollback, env.cfg.GetSQLitePath())
			} else {
				successColor.Fprintf(w, "✓ Schema up to date at %s\n", env.cfg.GetSQLitePath())
			}
			printField(w, "Latest", status.LatestApplied)
			printField(w, "Applied", itoa(status.Applied))
			printField(w, "Pending", itoa(status.Pending))
			for _, issue := range status.IntegrityIssues {
				warningColor.Fprintf(w, "  ! %s\n", issue)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rollback, "rollback", "", "roll back the applied migration with this version")
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded in the log for --rollback")
	return cmd
}
