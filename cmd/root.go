// Package cmd provides the crosswalk command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"crosswalk/bootstrap"
	"crosswalk/config"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags
var (
	outputJSON bool
	configFile string
	noColor    bool
	quiet      bool
	verbose    bool
)

const defaultTimeout = 5 * time.Minute // Default context timeout for one-shot commands

// NewRootCmd creates the crosswalk root command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "crosswalk",
		Short: "Cross-reference industrial security standards",
		Long: `Crosswalk answers questions over a curated catalog of industrial
cybersecurity standards: relevance search, requirement lookup with cross-standard
mappings, security-level rollups, zone and conduit guidance, technique-to-control
resolution and requirement rationale.

The catalog is a local SQLite file populated with 'crosswalk seed'.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			if configFile != "" {
				viper.SetConfigFile(configFile)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured level instead of warn")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newToolsCmd())
	rootCmd.AddCommand(newCallCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newRequirementCmd())
	rootCmd.AddCommand(newLevelsCmd())
	rootCmd.AddCommand(newZonesCmd())
	rootCmd.AddCommand(newTechniqueCmd())
	rootCmd.AddCommand(newRationaleCmd())
	rootCmd.AddCommand(newStandardsCmd())

	return rootCmd
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliEnv is the store and logger a one-shot command runs against
type cliEnv struct {
	cfg     *config.Config
	sugar   *zap.SugaredLogger
	storage *bootstrap.StorageComponents
}

// openEnv loads configuration, builds a logger and opens the control store.
// One-shot commands log at warn unless --verbose is set. The returned cleanup
// closes the store.
func openEnv() (*cliEnv, func(), error) {
	cfg, err := bootstrap.InitConfig()
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if !verbose {
		level = "warn"
	}
	logger, sugar, err := bootstrap.InitLogger(level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	bootstrap.LogConfig(cfg, sugar)

	components, err := bootstrap.InitStorage(cfg, sugar)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := components.Close(); err != nil {
			sugar.Warnw("Failed to close control store", "error", err)
		}
		_ = logger.Sync()
	}
	return &cliEnv{cfg: cfg, sugar: sugar, storage: components}, cleanup, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, defaultTimeout)
}
