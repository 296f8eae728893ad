package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var MigrateCmd = &cobra.Command{
	Use:   "migrate <suite> <test>",
	Short: "Rewrite a recording file in the current format",
	Long: `Load a recording file, applying legacy migration (hash, sequence and
timestamp back-fill, response normalization, de-duplication), and save it back
with the current version. createdAt is preserved.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runMigrate,
}

var migrateDryRun bool

func init() {
	MigrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "Load and report without writing")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	suite, test, err := splitTestID(args)
	if err != nil {
		return err
	}
	logger := newLogger()
	store, err := newStore(logger)
	if err != nil {
		return err
	}

	file, err := store.LoadFile(suite, test)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d recordings from %s (version %q)\n", len(file.Recordings), store.Path(suite, test), file.Metadata.Version)
	if migrateDryRun {
		return nil
	}

	runID := uuid.NewString()
	if err := store.Save(suite, test, file.Recordings, runID); err != nil {
		return fmt.Errorf("failed to write migrated file: %w", err)
	}
	fmt.Printf("✅ Migrated %s/%s (run %s)\n", suite, test, runID)
	return nil
}
