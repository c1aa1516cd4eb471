package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

const maxSeedFileSize = 64 * 1024 * 1024 // 64MB

// newSeedCmd creates the 'seed' subcommand
func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <dataset.yaml>",
		Short: "Load a YAML dataset into the control store",
		Long: `Load a YAML dataset into the control store.

Records are upserted on their natural keys, so seeding the same file twice is a
no-op. Data flows are replaced wholesale when the dataset contains any.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("cannot read dataset: %w", err)
			}
			if info.Size() > maxSeedFileSize {
				return fmt.Errorf("dataset too large: %d bytes (max %d)", info.Size(), maxSeedFileSize)
			}

			env, cleanup, err := openEnv()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			var s *spinner.Spinner
			if !outputJSON && !quiet {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
				s.Suffix = " Loading dataset..."
				s.Start()
			}

			start := time.Now()
			counts, err := env.storage.NewLoader(env.sugar).LoadFile(ctx, path)

			if s != nil {
				s.Stop()
			}
			if err != nil {
				return err
			}

			if outputJSON {
				return outputAsJSON(cmd.OutOrStdout(), counts)
			}
			renderCounts(cmd.OutOrStdout(), path, counts, time.Since(start))
			return nil
		},
	}
}
