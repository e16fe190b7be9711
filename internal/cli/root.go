// Package cli provides the command-line interface for recipeflow.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/akoval/recipeflow/internal/config"
	"github.com/akoval/recipeflow/internal/patches"
	"github.com/akoval/recipeflow/internal/service"
	"github.com/akoval/recipeflow/internal/store"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global state shared by subcommands, initialized in PersistentPreRunE.
	cfg         config.Config
	records     *store.Store
	patchStore  patches.Store
	svc         *service.Pipeline
	closeLogger func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "recipeflow",
	Short: "Self-correcting LLM recipe extraction pipeline",
	Long: `Recipeflow extracts structured recipes from raw text with an LLM and
diagnoses its own failures: a second model analyzes each failed extraction
and proposes configuration patches (unit aliases, response cleanup rules,
prompt addenda) that are merged durably and picked up by every later run.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		closeLogger = cleanup

		records, err = store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open record store: %w", err)
		}

		patchStore = patches.NewDirStore(cfg.PatchesDir)

		svc, err = service.New(cfg, records, patchStore, logger)
		if err != nil {
			return fmt.Errorf("build pipeline service: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if records != nil {
			if err := records.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close record store: %v\n", err)
			}
		}
		if closeLogger != nil {
			_ = closeLogger()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(reextractCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(analysesCmd)
	rootCmd.AddCommand(applyPatchesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(patchesCmd)
}
